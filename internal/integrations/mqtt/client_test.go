package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"facesplit/config"
	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"
	"facesplit/internal/util/timestamp"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ err error }

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *doneToken) Error() error { return t.err }

type published struct {
	topic   string
	retain  bool
	payload []byte
}

// fakePaho implements the parts of paho.Client the Client uses.
type fakePaho struct {
	paho.Client
	mu        sync.Mutex
	connected bool
	messages  []published
}

func (f *fakePaho) IsConnected() bool { return f.connected }

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic: topic, retain: retained, payload: payload.([]byte)})
	return &doneToken{}
}

func (f *fakePaho) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

func testConfig() config.MQTTConfig {
	cfg := config.Default().MQTT
	cfg.Enabled = true
	cfg.Topic = "facesplit"
	return cfg
}

func TestPublishMessagePayloadKinds(t *testing.T) {
	fake := &fakePaho{connected: true}
	c := newClientWith(testConfig(), fake)

	if err := c.Publish("a", "text"); err != nil {
		t.Fatal(err)
	}
	if err := c.Publish("b", 42); err != nil {
		t.Fatal(err)
	}
	if err := c.PublishRetain("c", map[string]int{"n": 1}); err != nil {
		t.Fatal(err)
	}

	msgs := fake.sent()
	if string(msgs[0].payload) != "text" || string(msgs[1].payload) != "42" || string(msgs[2].payload) != `{"n":1}` {
		t.Errorf("payloads = %q %q %q", msgs[0].payload, msgs[1].payload, msgs[2].payload)
	}
	if !msgs[2].retain || msgs[0].retain {
		t.Errorf("retain flags wrong: %+v", msgs)
	}
}

func TestPublishNotConnected(t *testing.T) {
	c := NewClient(testConfig())
	if err := c.Publish("x", "y"); err == nil {
		t.Error("expected error without connection")
	}
}

func TestResultPublisher(t *testing.T) {
	fake := &fakePaho{connected: true}
	pub := NewResultPublisher(newClientWith(testConfig(), fake))

	run := &processor.RunInfo{ID: 3, VideoPath: "/v.mp4", Detector: "pigo", StartedAt: time.Unix(0, 0)}
	run.FinishedAt = run.StartedAt.Add(1500 * time.Millisecond)
	results := []models.SegmentResult{
		{SegmentIndex: 0, Start: timestamp.Seconds(0), End: timestamp.Seconds(5), FaceCount: 1, Mode: models.ModeCenter},
		{SegmentIndex: 1, Start: timestamp.Seconds(5), End: timestamp.Seconds(9), FaceCount: 2, Mode: models.ModeSplit,
			Boxes: []models.RelativeBox{{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}, {X: 0.6, Y: 0.1, Width: 0.2, Height: 0.2}}},
	}

	ctx := context.Background()
	for _, r := range results {
		if err := pub.SegmentDone(ctx, run, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := pub.RunFinished(ctx, run, results); err != nil {
		t.Fatal(err)
	}

	msgs := fake.sent()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].topic != "facesplit/segment" || msgs[2].topic != "facesplit/run" {
		t.Errorf("topics = %s, %s", msgs[0].topic, msgs[2].topic)
	}

	var seg struct {
		RunID  uint `json:"run_id"`
		Result struct {
			Mode  string          `json:"mode"`
			Boxes json.RawMessage `json:"boxes"`
		} `json:"result"`
	}
	if err := json.Unmarshal(msgs[0].payload, &seg); err != nil {
		t.Fatal(err)
	}
	if seg.RunID != 3 || seg.Result.Mode != "CENTER" || string(seg.Result.Boxes) != "[]" {
		t.Errorf("segment message = %s", msgs[0].payload)
	}

	var summary RunSummary
	if err := json.Unmarshal(msgs[2].payload, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.DurationMs != 1500 || summary.Modes[models.ModeSplit] != 1 || summary.Modes[models.ModeCenter] != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if !msgs[2].retain {
		t.Error("run summary should be retained")
	}
}

type fakeAnalyzer struct {
	calls chan AnalyzeRequest
	err   error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, path string, specs []models.SegmentSpec) (*processor.Report, error) {
	a.calls <- AnalyzeRequest{VideoPath: path, Segments: specs}
	if a.err != nil {
		return nil, a.err
	}
	return &processor.Report{}, nil
}

func TestAnalyzeHandler(t *testing.T) {
	fake := &fakePaho{connected: true}
	client := newClientWith(testConfig(), fake)
	analyzer := &fakeAnalyzer{calls: make(chan AnalyzeRequest, 1)}
	h := NewAnalyzeHandler(client, analyzer, time.Second)

	h.HandleMessage("facesplit/analyze", []byte(`{"video_path":"/v.mp4","segments":[{"start":"00:00:01","end":3}]}`))
	req := <-analyzer.calls
	if req.VideoPath != "/v.mp4" || len(req.Segments) != 1 || req.Segments[0].Start.Seconds() != 1 {
		t.Errorf("request = %+v", req)
	}
	if len(fake.sent()) != 0 {
		t.Errorf("no error message expected, got %d", len(fake.sent()))
	}

	// other topics are ignored
	h.HandleMessage("facesplit/other", []byte(`{"video_path":"/v.mp4"}`))
	if len(analyzer.calls) != 0 {
		t.Error("handler reacted to a foreign topic")
	}

	h.HandleMessage("facesplit/analyze", []byte(`not json`))
	h.HandleMessage("facesplit/analyze", []byte(`{"segments":[]}`))

	analyzer.err = processor.NewInputError(processor.CodeVideoNotFound, errors.New("gone"))
	h.HandleMessage("facesplit/analyze", []byte(`{"request_id":"r1","video_path":"/missing.mp4","segments":[]}`))
	<-analyzer.calls

	msgs := fake.sent()
	if len(msgs) != 3 {
		t.Fatalf("got %d error messages, want 3", len(msgs))
	}
	var last ErrorMessage
	if err := json.Unmarshal(msgs[2].payload, &last); err != nil {
		t.Fatal(err)
	}
	if msgs[2].topic != "facesplit/error" || last.RequestID != "r1" || last.Error != "[E044] gone" {
		t.Errorf("error message = %s on %s", msgs[2].payload, msgs[2].topic)
	}
}
