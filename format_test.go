package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{100 * 1024 * 1024, "100.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.bytes))
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	sameYear := time.Date(now.Year(), time.March, 5, 14, 30, 0, 0, time.Local)
	assert.Equal(t, "Mar  5 14:30", formatTime(sameYear))

	otherYear := time.Date(now.Year()-2, time.March, 5, 14, 30, 0, 0, time.Local)
	assert.Contains(t, formatTime(otherYear), "Mar  5")
	assert.NotContains(t, formatTime(otherYear), "14:30")
}

func TestPrintTable(t *testing.T) {
	var sb strings.Builder

	printTable(&sb, []string{"NAME", "SIZE"}, [][]string{
		{"report.pdf", "1.0 KB"},
		{"x", "12 B"},
	})

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "report.pdf  1.0 KB")
}

func TestDescribeBotToken(t *testing.T) {
	assert.Equal(t, "not set", describeBotToken(""))
	assert.Equal(t, "set", describeBotToken("123:abc"))
}

func TestDescribeFolder(t *testing.T) {
	assert.Equal(t, "Drive root", describeFolder(""))
	assert.Equal(t, "folder123", describeFolder("folder123"))
}
