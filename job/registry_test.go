package job_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/Thijssvd/SommOS-sub001/job"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := job.NewRegistry()

	called := false
	r.Register("send-email", func(_ context.Context, _ []byte) ([]byte, error) {
		called = true
		return []byte("ok"), nil
	})

	h, ok := r.Get("send-email")
	if !ok {
		t.Fatal("Get = !ok, want ok")
	}
	out, err := h(context.Background(), nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !called || string(out) != "ok" {
		t.Errorf("handler output = %q, called = %v", out, called)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := job.NewRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Error("Get on unknown type = ok, want !ok")
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := job.NewRegistry()

	r.Register("task", func(_ context.Context, _ []byte) ([]byte, error) {
		return []byte("v1"), nil
	})
	r.Register("task", func(_ context.Context, _ []byte) ([]byte, error) {
		return []byte("v2"), nil
	})

	h, _ := r.Get("task")
	out, _ := h(context.Background(), nil)
	if string(out) != "v2" {
		t.Errorf("handler output = %q, want v2 (last registration wins)", out)
	}
}

func TestRegistry_Types(t *testing.T) {
	r := job.NewRegistry()
	noop := func(_ context.Context, _ []byte) ([]byte, error) { return nil, nil }
	r.Register("b", noop)
	r.Register("a", noop)

	types := r.Types()
	sort.Strings(types)
	if len(types) != 2 || types[0] != "a" || types[1] != "b" {
		t.Errorf("Types = %v, want [a b]", types)
	}
}

type pairingRequest struct {
	Dish  string `json:"dish"`
	Guest int    `json:"guest"`
}

func TestRegisterDefinition_TypedRoundtrip(t *testing.T) {
	r := job.NewRegistry()

	var got pairingRequest
	def := job.NewDefinition("suggest-pairing", func(_ context.Context, p pairingRequest) (any, error) {
		got = p
		return map[string]string{"wine": "riesling"}, nil
	})
	job.RegisterDefinition(r, def)

	h, ok := r.Get("suggest-pairing")
	if !ok {
		t.Fatal("definition not registered")
	}

	payload, _ := json.Marshal(pairingRequest{Dish: "scallops", Guest: 4})
	out, err := h(context.Background(), payload)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got.Dish != "scallops" || got.Guest != 4 {
		t.Errorf("decoded payload = %+v", got)
	}

	var result map[string]string
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("result unmarshal: %v", err)
	}
	if result["wine"] != "riesling" {
		t.Errorf("result = %v", result)
	}
}

func TestRegisterDefinition_BadPayload(t *testing.T) {
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("typed", func(_ context.Context, _ pairingRequest) (any, error) {
		t.Fatal("handler must not run on undecodable payload")
		return nil, nil
	}))

	h, _ := r.Get("typed")
	if _, err := h(context.Background(), []byte("{not json")); err == nil {
		t.Error("handler on bad payload = nil error, want error")
	}
}

func TestRegisterDefinition_HandlerError(t *testing.T) {
	r := job.NewRegistry()
	boom := errors.New("cellar unavailable")
	job.RegisterDefinition(r, job.NewDefinition("failing", func(_ context.Context, _ pairingRequest) (any, error) {
		return nil, boom
	}))

	h, _ := r.Get("failing")
	_, err := h(context.Background(), []byte(`{}`))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestJob_CloneIsDeep(t *testing.T) {
	j := &job.Job{
		Payload:  []byte("payload"),
		Attempts: []job.Attempt{{Number: 1}},
		Status:   job.StatusRunning,
	}

	c := j.Clone()
	c.Payload[0] = 'X'
	c.Attempts[0].Number = 99

	if j.Payload[0] == 'X' {
		t.Error("clone shares payload memory")
	}
	if j.Attempts[0].Number == 99 {
		t.Error("clone shares attempts memory")
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := []job.Status{job.StatusCompleted, job.StatusFailed, job.StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	for _, s := range []job.Status{job.StatusQueued, job.StatusRunning} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}
