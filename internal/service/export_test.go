package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifuryst/affpress/internal/models"
)

func TestEarningRows(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	published := created.Add(time.Minute)

	rows := EarningRows([]models.ContentItem{
		{
			Title:       "Earbuds",
			Status:      models.StatusPublished,
			Platforms:   models.StringList{"demo-web", "demo-telegram"},
			EstRevenue:  3.456,
			CreatedAt:   created,
			PublishedAt: &published,
		},
		{Title: "Tips", Status: models.StatusRejected, CreatedAt: created},
		{Title: "Pending", Status: models.StatusDraft, CreatedAt: created},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, EarningRow{Timestamp: published.Unix(), Platform: "demo-web,demo-telegram", Amount: "3.46", Note: "Earbuds"}, rows[0])
	assert.Equal(t, EarningRow{Timestamp: created.Unix(), Platform: "rejected", Note: "Tips"}, rows[1])
	assert.Equal(t, EarningRow{Timestamp: created.Unix(), Platform: "draft", Note: "Pending"}, rows[2])
}

func TestWriteEarnings(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateDraft(ctx, "Deals, this week", "body")
	require.NoError(t, err)
	require.NoError(t, store.MarkPublished(ctx, id, time.Now(), WithPlatforms([]string{"demo-web"}), WithEstRevenue(2)))

	var buf bytes.Buffer
	require.NoError(t, WriteEarnings(ctx, store, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,platform,amount,note", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], `,demo-web,2.00,"Deals, this week"`), lines[1])
}
