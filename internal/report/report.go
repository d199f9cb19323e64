// Package report computes annual totals straight from Postgres with database/sql.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"monthlydata/models"

	_ "github.com/lib/pq"
)

// Line is one record's yearly figure.
type Line struct {
	Username  string
	Mobile    string
	Total     float64
	CreatedBy string
}

// Summary aggregates a report run.
type Summary struct {
	Lines      []Line
	Records    int64
	GrandTotal float64
}

// Options filter a report. Zero values select everything.
type Options struct {
	Username string
	Limit    int
}

// Open connects to dsn with the lib/pq driver.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DB_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// totalExpr sums the month columns.
func totalExpr() string {
	cols := make([]string, len(models.MonthNames))
	for i, m := range models.MonthNames {
		cols[i] = "r." + m
	}
	return strings.Join(cols, " + ")
}

func query(opts Options) (string, []any) {
	var b strings.Builder
	var args []any
	fmt.Fprintf(&b, `SELECT r.username, r.mobile, %s AS total, COALESCE(u.username, '') AS created_by
FROM monthly_records r
LEFT JOIN users u ON u.id = r.created_by`, totalExpr())
	if opts.Username != "" {
		args = append(args, opts.Username)
		fmt.Fprintf(&b, "\nWHERE r.username = $%d", len(args))
	}
	b.WriteString("\nORDER BY total DESC, r.username, r.mobile")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, "\nLIMIT $%d", len(args))
	}
	return b.String(), args
}

// AnnualTotals returns one line per record ordered by total, highest first.
func AnnualTotals(ctx context.Context, db *sql.DB, opts Options) (Summary, error) {
	q, args := query(opts)
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return Summary{}, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var s Summary
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.Username, &l.Mobile, &l.Total, &l.CreatedBy); err != nil {
			return Summary{}, fmt.Errorf("scan totals: %w", err)
		}
		s.Lines = append(s.Lines, l)
		s.Records++
		s.GrandTotal += l.Total
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate totals: %w", err)
	}
	return s, nil
}

// Write prints s as an aligned table followed by the totals line.
func Write(w io.Writer, s Summary) error {
	if w == nil {
		w = os.Stdout
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tMOBILE\tTOTAL\tCREATED BY")
	for _, l := range s.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", l.Username, l.Mobile, l.Total, l.CreatedBy)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "records=%d total=%.2f\n", s.Records, s.GrandTotal)
	return err
}
