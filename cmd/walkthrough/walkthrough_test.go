package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/querydb/fees"
	"github.com/tailored-agentic-units/querydb/query"
)

func TestWalk(t *testing.T) {
	var buf bytes.Buffer
	db, err := fees.New(nil, query.WithObserver(query.NewTextObserver(&buf)))
	require.NoError(t, err)

	require.NoError(t, walk(context.Background(), &buf, db))

	out := buf.String()
	assert.Contains(t, out, "**  Before we can query fees we need to set the input values.\n")
	assert.Contains(t, out, "Setting base_fee() to 100\n")
	assert.Contains(t, out, "Memo is valid as no dependencies have changed\n")
	assert.Contains(t, out, "New value 100 is the same as the memo value, so not updating changed_at\n")
	assert.Equal(t, "fees", db.Engine().Name())
}

func TestQuoteCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"quote", "--discount-age-limit", "17", "16", "17"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "age 16: one year 70, two years 140\nage 17: one year 70, two years 170\n", buf.String())
}
