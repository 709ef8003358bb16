package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/ifuryst/affpress/internal/models"
)

// EarningRow is one line of the earnings export.
type EarningRow struct {
	Timestamp int64  `csv:"timestamp"`
	Platform  string `csv:"platform"`
	Amount    string `csv:"amount"`
	Note      string `csv:"note"`
}

// EarningRows derives export rows from content items. Published items carry
// their platforms and revenue; other items report their status and no amount.
func EarningRows(items []models.ContentItem) []EarningRow {
	rows := make([]EarningRow, 0, len(items))
	for _, item := range items {
		row := EarningRow{
			Timestamp: item.CreatedAt.Unix(),
			Platform:  string(item.Status),
			Note:      item.Title,
		}
		if item.Status == models.StatusPublished {
			if item.PublishedAt != nil {
				row.Timestamp = item.PublishedAt.Unix()
			}
			if len(item.Platforms) > 0 {
				row.Platform = strings.Join(item.Platforms, ",")
			}
			row.Amount = fmt.Sprintf("%.2f", item.EstRevenue)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteEarnings writes the CSV export of every stored item to w.
func WriteEarnings(ctx context.Context, store ContentStore, w io.Writer) error {
	items, err := store.List(ctx, ListOptions{})
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(EarningRows(items), w); err != nil {
		return fmt.Errorf("failed to write earnings csv: %w", err)
	}
	return nil
}
