package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TrainingState reports the recognizer's training progress for a group.
type TrainingState string

const (
	TrainingRunning   TrainingState = "running"
	TrainingSucceeded TrainingState = "succeeded"
	TrainingFailed    TrainingState = "failed"
)

// Client calls the face recognition service. Each class maps to one person
// group; each enrolled student maps to one person inside that group.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the given endpoint.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateGroup registers a new person group.
func (c *Client) CreateGroup(ctx context.Context, groupID, name string) error {
	path := fmt.Sprintf("/persongroups/%s", groupID)
	return c.do(ctx, http.MethodPut, path, map[string]string{"name": name}, nil)
}

// DeleteGroup removes a person group and all its persons and faces.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	path := fmt.Sprintf("/persongroups/%s", groupID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreatePerson adds a person to a group and returns the assigned person id.
func (c *Client) CreatePerson(ctx context.Context, groupID, name string) (string, error) {
	path := fmt.Sprintf("/persongroups/%s/persons", groupID)
	var out struct {
		PersonID string `json:"personId"`
	}
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	if out.PersonID == "" {
		return "", fmt.Errorf("recognition: empty person id in response")
	}
	return out.PersonID, nil
}

// DeletePerson removes a person from a group.
func (c *Client) DeletePerson(ctx context.Context, groupID, personID string) error {
	path := fmt.Sprintf("/persongroups/%s/persons/%s", groupID, personID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// AddFace attaches a face sample, referenced by URL, to a person.
func (c *Client) AddFace(ctx context.Context, groupID, personID, imageURL string) error {
	path := fmt.Sprintf("/persongroups/%s/persons/%s/persistedFaces", groupID, personID)
	return c.do(ctx, http.MethodPost, path, map[string]string{"url": imageURL}, nil)
}

// Train kicks off asynchronous training for a group. Progress is reported
// via GetTrainingStatus.
func (c *Client) Train(ctx context.Context, groupID string) error {
	path := fmt.Sprintf("/persongroups/%s/train", groupID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// GetTrainingStatus returns the current training state for a group.
func (c *Client) GetTrainingStatus(ctx context.Context, groupID string) (TrainingState, error) {
	path := fmt.Sprintf("/persongroups/%s/training", groupID)
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	switch TrainingState(out.Status) {
	case TrainingRunning, TrainingSucceeded, TrainingFailed:
		return TrainingState(out.Status), nil
	default:
		return "", fmt.Errorf("recognition: unknown training status %q", out.Status)
	}
}

// DetectAndIdentify detects faces in each image and identifies them against
// the group, returning the union of identified person ids across all images.
// Faces without a candidate are skipped.
func (c *Client) DetectAndIdentify(ctx context.Context, groupID string, imageURLs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var personIDs []string

	for _, imageURL := range imageURLs {
		faceIDs, err := c.detect(ctx, imageURL)
		if err != nil {
			return nil, err
		}
		if len(faceIDs) == 0 {
			continue
		}

		identified, err := c.identify(ctx, groupID, faceIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range identified {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			personIDs = append(personIDs, id)
		}
	}

	return personIDs, nil
}

func (c *Client) detect(ctx context.Context, imageURL string) ([]string, error) {
	var out []struct {
		FaceID string `json:"faceId"`
	}
	if err := c.do(ctx, http.MethodPost, "/detect", map[string]string{"url": imageURL}, &out); err != nil {
		return nil, err
	}
	faceIDs := make([]string, 0, len(out))
	for _, f := range out {
		faceIDs = append(faceIDs, f.FaceID)
	}
	return faceIDs, nil
}

func (c *Client) identify(ctx context.Context, groupID string, faceIDs []string) ([]string, error) {
	payload := map[string]interface{}{
		"personGroupId": groupID,
		"faceIds":       faceIDs,
	}
	var out []struct {
		FaceID     string `json:"faceId"`
		Candidates []struct {
			PersonID   string  `json:"personId"`
			Confidence float64 `json:"confidence"`
		} `json:"candidates"`
	}
	if err := c.do(ctx, http.MethodPost, "/identify", payload, &out); err != nil {
		return nil, err
	}

	var personIDs []string
	for _, result := range out {
		if len(result.Candidates) == 0 {
			continue
		}
		personIDs = append(personIDs, result.Candidates[0].PersonID)
	}
	return personIDs, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("recognition: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("recognition: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recognition: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("recognition: %s %s failed (%d): %s", method, path, resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("recognition: decode response: %w", err)
		}
	}
	return nil
}
