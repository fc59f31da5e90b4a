package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreatePersonReturnsAssignedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/persongroups/class-1/persons", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada Lovelace", body["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"personId":"person-42"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "secret", time.Second)
	personID, err := client.CreatePerson(context.Background(), "class-1", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "person-42", personID)
}

func TestClientCreatePersonRejectsEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)
	_, err := client.CreatePerson(context.Background(), "class-1", "Ada Lovelace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty person id")
}

func TestClientDetectAndIdentifyUnionsAcrossImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/detect":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			switch body["url"] {
			case "https://cdn/one.jpg":
				_, _ = w.Write([]byte(`[{"faceId":"face-1"},{"faceId":"face-2"}]`))
			case "https://cdn/two.jpg":
				_, _ = w.Write([]byte(`[{"faceId":"face-3"}]`))
			default:
				_, _ = w.Write([]byte(`[]`))
			}
		case "/identify":
			var body struct {
				PersonGroupID string   `json:"personGroupId"`
				FaceIDs       []string `json:"faceIds"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "class-1", body.PersonGroupID)
			if len(body.FaceIDs) == 2 {
				_, _ = w.Write([]byte(`[
					{"faceId":"face-1","candidates":[{"personId":"person-1","confidence":0.9}]},
					{"faceId":"face-2","candidates":[]}
				]`))
			} else {
				_, _ = w.Write([]byte(`[
					{"faceId":"face-3","candidates":[{"personId":"person-1","confidence":0.8}]}
				]`))
			}
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)
	ids, err := client.DetectAndIdentify(context.Background(), "class-1", []string{
		"https://cdn/one.jpg",
		"https://cdn/two.jpg",
		"https://cdn/empty.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"person-1"}, ids)
}

func TestClientGetTrainingStatus(t *testing.T) {
	status := "running"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/persongroups/class-1/training", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)

	state, err := client.GetTrainingStatus(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, TrainingRunning, state)

	status = "succeeded"
	state, err = client.GetTrainingStatus(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, TrainingSucceeded, state)

	status = "exploded"
	_, err = client.GetTrainingStatus(context.Background(), "class-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown training status")
}

func TestClientSurfacesUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"RateLimitExceeded"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second)
	err := client.Train(context.Background(), "class-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "RateLimitExceeded")
}
