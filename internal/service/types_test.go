package service_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklink/internal/service"
)

func TestTask_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantID  string
		created time.Time
	}{
		{
			name:    "numeric id and naive timestamp",
			data:    `{"id": 42, "user_id": "u1", "title": "t", "completed": false, "created_at": "2026-01-05T10:30:00.123456"}`,
			wantID:  "42",
			created: time.Date(2026, 1, 5, 10, 30, 0, 123456000, time.UTC),
		},
		{
			name:    "string id and zoned timestamp",
			data:    `{"id": "abc", "user_id": "u1", "title": "t", "completed": true, "created_at": "2026-01-05T10:30:00+02:00"}`,
			wantID:  "abc",
			created: time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC),
		},
		{
			name:   "missing timestamps",
			data:   `{"id": 1, "title": "t"}`,
			wantID: "1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var task service.Task
			require.NoError(t, json.Unmarshal([]byte(tt.data), &task))
			assert.Equal(t, tt.wantID, task.ID)
			assert.Equal(t, "t", task.Title)
			assert.True(t, tt.created.Equal(task.CreatedAt), "created_at: want %v, got %v", tt.created, task.CreatedAt)
		})
	}
}

func TestTask_UnmarshalJSON_BadTimestamp(t *testing.T) {
	var task service.Task
	err := json.Unmarshal([]byte(`{"id": 1, "created_at": "yesterday"}`), &task)
	assert.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want service.Filter
		err  bool
	}{
		{"", service.FilterAll, false},
		{"all", service.FilterAll, false},
		{" Pending ", service.FilterPending, false},
		{"completed", service.FilterCompleted, false},
		{"done", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := service.ParseFilter(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_StatusAndMatches(t *testing.T) {
	open := service.Task{Completed: false}
	done := service.Task{Completed: true}

	assert.Equal(t, "", service.FilterAll.Status())
	assert.Equal(t, "pending", service.FilterPending.Status())
	assert.Equal(t, "completed", service.FilterCompleted.Status())

	assert.True(t, service.FilterAll.Matches(open))
	assert.True(t, service.FilterAll.Matches(done))
	assert.True(t, service.FilterPending.Matches(open))
	assert.False(t, service.FilterPending.Matches(done))
	assert.False(t, service.FilterCompleted.Matches(open))
	assert.True(t, service.FilterCompleted.Matches(done))
}

func TestCreateInput_Validate(t *testing.T) {
	assert.NoError(t, service.CreateInput{Title: "ok"}.Validate())
	assert.NoError(t, service.CreateInput{Title: strings.Repeat("é", service.MaxTitleLen)}.Validate())

	err := service.CreateInput{Title: "  "}.Validate()
	assert.ErrorIs(t, err, service.ErrValidation)

	err = service.CreateInput{Title: strings.Repeat("x", service.MaxTitleLen+1)}.Validate()
	assert.ErrorIs(t, err, service.ErrValidation)

	long := strings.Repeat("x", service.MaxDescriptionLen+1)
	err = service.CreateInput{Title: "ok", Description: &long}.Validate()
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUpdateInput(t *testing.T) {
	assert.True(t, service.UpdateInput{}.Empty())
	assert.False(t, service.UpdateInput{Completed: service.Bool(false)}.Empty())

	err := service.UpdateInput{Title: service.String("")}.Validate()
	assert.ErrorIs(t, err, service.ErrValidation)

	orig := service.Task{ID: "1", Title: "old", Description: service.String("keep")}
	got := service.UpdateInput{Title: service.String("new"), Completed: service.Bool(true)}.Apply(orig)
	assert.Equal(t, "new", got.Title)
	assert.True(t, got.Completed)
	require.NotNil(t, got.Description)
	assert.Equal(t, "keep", *got.Description)
	assert.Equal(t, "old", orig.Title)
}

func TestError_KindMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &service.Error{Kind: service.KindNotFound, Status: 404, Message: "gone"})

	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.False(t, errors.Is(err, service.ErrUnauthorized))
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
	assert.Equal(t, service.KindRequestFailed, service.KindOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "boom (status 500)", (&service.Error{Kind: service.KindRequestFailed, Status: 500, Message: "boom"}).Error())
	assert.Equal(t, "unauthorized", (&service.Error{Kind: service.KindUnauthorized, Status: 401}).Error())
	assert.Equal(t, "request failed: eof", (&service.Error{Kind: service.KindRequestFailed, Err: errors.New("eof")}).Error())
}
