package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"monthlydata/internal/auth"
	"monthlydata/internal/events"
	"monthlydata/internal/logging"
	"monthlydata/internal/store"
	"monthlydata/internal/validation"
	"monthlydata/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	msgServerError      = "Server error"
	msgNotFound         = "Data not found"
	msgCreated          = "Monthly data created successfully"
	msgUpdated          = "Monthly data updated successfully"
	msgDeleted          = "Monthly data deleted successfully"
	msgDuplicate        = "Record already exists for this username and mobile number"
	msgDuplicateAnother = "Another record already exists for this username and mobile number"

	defaultPage  = 1
	defaultLimit = 10
)

type pagination struct {
	Current int   `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
}

type listResponse struct {
	Data       []models.MonthlyRecord `json:"data"`
	Pagination pagination             `json:"pagination"`
}

// positiveQuery reads a query int, falling back to def when it is missing, malformed or < 1.
func positiveQuery(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func pageWindow(page, limit int) store.Page {
	skip := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		skip = (page - 1) * limit
	}
	return store.Page{Skip: skip, Limit: limit}
}

func (s *Server) listRecordsHandler(c *gin.Context) {
	page := positiveQuery(c, "page", defaultPage)
	limit := positiveQuery(c, "limit", defaultLimit)

	var (
		rows  []models.MonthlyRecord
		total int64
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		rows, err = s.store.FindRecords(ctx, store.RecordFilter{}, pageWindow(page, limit))
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountRecords(ctx, store.RecordFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		serverError(c, logging.ComponentRecords, logging.OpList, err)
		return
	}
	if rows == nil {
		rows = []models.MonthlyRecord{}
	}
	c.JSON(http.StatusOK, listResponse{
		Data: rows,
		Pagination: pagination{
			Current: page,
			Pages:   (total + int64(limit) - 1) / int64(limit),
			Total:   total,
		},
	})
}

// recordID parses the :id path parameter. Malformed ids cannot name a record, so they 404.
func recordID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) getRecordHandler(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	rec, err := s.store.FindRecordByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
			return
		}
		serverError(c, logging.ComponentRecords, logging.OpRead, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// bindRecordInput decodes and validates the body. It writes the 400 response itself.
func bindRecordInput(c *gin.Context) (*validation.RecordInput, bool) {
	var in validation.RecordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": validation.Errors{{
			Type:     "field",
			Msg:      "Invalid JSON body",
			Location: "body",
		}}})
		return nil, false
	}
	if errs := validation.Validate(&in); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return nil, false
	}
	return &in, true
}

func (s *Server) createRecordHandler(c *gin.Context) {
	in, ok := bindRecordInput(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	caller, _ := auth.IdentityFrom(c)

	_, err := s.store.FindOneRecord(ctx, store.RecordFilter{Username: in.Username.Value, Mobile: in.Mobile.Value})
	switch {
	case err == nil:
		c.JSON(http.StatusBadRequest, gin.H{"message": msgDuplicate})
		return
	case !errors.Is(err, store.ErrNotFound):
		serverError(c, logging.ComponentRecords, logging.OpCreate, err)
		return
	}

	rec := in.ToRecord(caller.UserID)
	if err := s.store.CreateRecord(ctx, &rec); err != nil {
		// lost the race against a concurrent create of the same pair
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"message": msgDuplicate})
			return
		}
		serverError(c, logging.ComponentRecords, logging.OpCreate, err)
		return
	}
	s.publish(ctx, events.TypeCreated, &rec, caller.UserID)
	c.JSON(http.StatusCreated, gin.H{"message": msgCreated, "data": rec})
}

func (s *Server) updateRecordHandler(c *gin.Context) {
	in, ok := bindRecordInput(c)
	if !ok {
		return
	}
	id, ok := recordID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	caller, _ := auth.IdentityFrom(c)

	if _, err := s.store.FindRecordByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
			return
		}
		serverError(c, logging.ComponentRecords, logging.OpUpdate, err)
		return
	}

	_, err := s.store.FindOneRecord(ctx, store.RecordFilter{
		Username:  in.Username.Value,
		Mobile:    in.Mobile.Value,
		ExcludeID: id,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusBadRequest, gin.H{"message": msgDuplicateAnother})
		return
	case !errors.Is(err, store.ErrNotFound):
		serverError(c, logging.ComponentRecords, logging.OpUpdate, err)
		return
	}

	rec, err := s.store.UpdateRecordByID(ctx, id, in.ToUpdate())
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
		return
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"message": msgDuplicateAnother})
		return
	case err != nil:
		serverError(c, logging.ComponentRecords, logging.OpUpdate, err)
		return
	}
	s.publish(ctx, events.TypeUpdated, rec, caller.UserID)
	c.JSON(http.StatusOK, gin.H{"message": msgUpdated, "data": rec})
}

func (s *Server) deleteRecordHandler(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	caller, _ := auth.IdentityFrom(c)

	rec, err := s.store.FindRecordByID(ctx, id)
	if err == nil {
		err = s.store.DeleteRecordByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
			return
		}
		serverError(c, logging.ComponentRecords, logging.OpDelete, err)
		return
	}
	s.publish(ctx, events.TypeDeleted, rec, caller.UserID)
	c.JSON(http.StatusOK, gin.H{"message": msgDeleted})
}

// publish never fails the request; a broker outage only costs the notification.
// The write is already committed, so the event outlives a client that hangs up.
func (s *Server) publish(ctx context.Context, typ string, rec *models.MonthlyRecord, actor uint) {
	ctx = context.WithoutCancel(ctx)
	if err := s.events.Publish(ctx, events.NewRecordEvent(typ, rec, actor)); err != nil {
		logging.FromContext(ctx).Warn("Failed to publish record event",
			logging.FieldComponent, logging.ComponentEvents,
			logging.FieldRecordID, rec.ID,
			"type", typ,
			logging.FieldError, err)
	}
}
