package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lettermill/import-api/internal/domain/model"
)

func TestListLists_ReturnsSummaries(t *testing.T) {
	f, ctrl := newHandlersWithMock(t)
	defer ctrl.Finish()

	f.destination.EXPECT().ListSummaries(gomock.Any()).Return([]*model.ListSummary{
		{ListName: "newsletter", Subscribers: 120},
		{ListName: "digest", Subscribers: 40},
	}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	w := httptest.NewRecorder()

	f.lists.List(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]*model.ListSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body["lists"], 2)
	assert.Equal(t, int64(120), body["lists"][0].Subscribers)
}

func TestDeleteList_ActiveJob_Returns409(t *testing.T) {
	f, ctrl := newHandlersWithMock(t)
	defer ctrl.Finish()

	f.registry.EXPECT().
		ActiveForList(gomock.Any(), "newsletter").
		Return(&model.ImportJob{ID: "job-1", Status: model.JobStatusProcessing}, nil)

	r := httptest.NewRequest(http.MethodDelete, "/api/lists/newsletter", nil)
	r.SetPathValue("name", "newsletter")
	w := httptest.NewRecorder()

	f.lists.Delete(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["message"], "job-1")
}

func TestDeleteList_Force_CancelsThenDeletes(t *testing.T) {
	f, ctrl := newHandlersWithMock(t)
	defer ctrl.Finish()

	f.registry.EXPECT().
		ActiveForList(gomock.Any(), "newsletter").
		Return(&model.ImportJob{ID: "job-1", Status: model.JobStatusProcessing}, nil)
	f.registry.EXPECT().Cancel(gomock.Any(), "job-1").Return(true, nil)
	f.destination.EXPECT().DeleteList(gomock.Any(), "newsletter").Return(int64(42), nil)

	r := httptest.NewRequest(http.MethodDelete, "/api/lists/newsletter?force=1", nil)
	r.SetPathValue("name", "newsletter")
	w := httptest.NewRecorder()

	f.lists.Delete(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(42), body["deleted"])
}

func TestDeleteList_IdleList_Deletes(t *testing.T) {
	f, ctrl := newHandlersWithMock(t)
	defer ctrl.Finish()

	f.registry.EXPECT().
		ActiveForList(gomock.Any(), "digest").
		Return(nil, model.ErrJobNotFound)
	f.destination.EXPECT().DeleteList(gomock.Any(), "digest").Return(int64(7), nil)

	r := httptest.NewRequest(http.MethodDelete, "/api/lists/digest", nil)
	r.SetPathValue("name", "digest")
	w := httptest.NewRecorder()

	f.lists.Delete(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
