package notify

import (
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/progress-sync/internal/engine"
)

func TestSummaryBlocks(t *testing.T) {
	sum := &engine.Summary{
		RunID:      "run-1",
		StartedAt:  time.Now().Add(-1500 * time.Millisecond),
		FinishedAt: time.Now(),
		Rows:       10,
		Applied:    6,
		Unchanged:  2,
		Skipped:    1,
		Protected:  1,
	}

	blocks := SummaryBlocks(sum)
	require.Len(t, blocks, 3)

	header, ok := blocks[0].(*slack.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "Progress sync finished: 6 rows applied", header.Text.Text)

	section, ok := blocks[1].(*slack.SectionBlock)
	require.True(t, ok)
	require.Len(t, section.Fields, 6)
	assert.Equal(t, "*Rows:* 10", section.Fields[0].Text)
	assert.Equal(t, "*Protected:* 1", section.Fields[4].Text)

	_, ok = blocks[2].(*slack.ContextBlock)
	assert.True(t, ok)
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		name string
		sum  engine.Summary
		want string
	}{
		{"clean run", engine.Summary{Applied: 3}, "Progress sync finished: 3 rows applied"},
		{"dry run", engine.Summary{DryRun: true, Reported: 5}, "Progress sync dry run: 5 rows reported"},
		{"row failures", engine.Summary{Applied: 2, Failed: 1}, "Progress sync finished with errors: 2 applied, 1 failed"},
		{"write failures", engine.Summary{Applied: 2, WriteFails: 1}, "Progress sync finished with errors: 2 applied, 0 failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, headline(&tt.sum))
		})
	}
}
