package tts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnavailable marks a synthesizer failure. Callers on the announcement
// path treat it as non-fatal and fall back to chime-only playback.
var ErrUnavailable = errors.New("speech synthesizer unavailable")

const (
	defaultVoice = "pf_dora"
	minSpeed     = 0.25
	maxSpeed     = 4.0
	minVolume    = 0.1
	maxVolume    = 4.0
)

var validVoices = map[string]string{
	"pf_dora":  "pf_dora",
	"pm_alex":  "pm_alex",
	"pm_santa": "pm_santa",
	"dora":     "pf_dora",
	"alex":     "pm_alex",
	"santa":    "pm_santa",
}

type Request struct {
	Text   string
	Voice  string
	Speed  float64
	Volume float64
}

// Client is a content-addressed cache in front of a Kokoro-compatible
// synthesizer. Identical requests map to one immutable file; only a miss
// touches the network.
type Client struct {
	endpoint   string
	cacheDir   string
	httpClient *http.Client
	group      singleflight.Group
}

func NewClient(endpoint, cacheDir string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Client{
		endpoint:   endpoint,
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Synthesize returns the audio for the normalized request. Cache hits never
// call upstream; concurrent misses for the same key collapse into a single
// upstream call, and the file lands via rename so readers never see a
// partial write.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	req = normalize(req)
	path := filepath.Join(c.cacheDir, cacheKey(req))

	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	value, err, _ := c.group.Do(path, func() (interface{}, error) {
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}
		data, err := c.fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := writeAtomic(c.cacheDir, path, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

func (c *Client) fetch(ctx context.Context, req Request) ([]byte, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":             "kokoro",
		"input":             req.Text,
		"voice":             req.Voice,
		"response_format":   "mp3",
		"speed":             req.Speed,
		"volume_multiplier": req.Volume,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func normalize(req Request) Request {
	voice, ok := validVoices[req.Voice]
	if !ok {
		voice = defaultVoice
	}
	req.Voice = voice
	req.Speed = clamp(req.Speed, minSpeed, maxSpeed, 1.0)
	req.Volume = clamp(req.Volume, minVolume, maxVolume, 1.0)
	return req
}

func clamp(value, min, max, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func cacheKey(req Request) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f|%.2f", req.Text, req.Voice, req.Speed, req.Volume)))
	return hex.EncodeToString(sum[:]) + ".mp3"
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tts-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
