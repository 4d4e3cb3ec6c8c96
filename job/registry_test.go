package job_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/pyxol/protostar"
	"github.com/pyxol/protostar/job"
)

type emailProps struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
}

type emailHandler struct {
	props emailProps
}

func (h *emailHandler) Handle(context.Context) job.Outcome { return job.Success() }

func newEmailHandler(p emailProps) job.Handler { return &emailHandler{props: p} }

func TestRegistry_RegisterAndReconstruct(t *testing.T) {
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("send-email", newEmailHandler, "to"))

	props, err := job.NewProperties(map[string]any{"to": "alice@example.com", "subject": "Hello"})
	if err != nil {
		t.Fatalf("capture properties: %v", err)
	}

	h, err := r.Reconstruct(job.Descriptor{Type: "send-email", Properties: props})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eh, ok := h.(*emailHandler)
	if !ok {
		t.Fatalf("handler type = %T, want *emailHandler", h)
	}
	if eh.props.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", eh.props.To, "alice@example.com")
	}
	if eh.props.Subject != "Hello" {
		t.Errorf("Subject = %q, want %q", eh.props.Subject, "Hello")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := job.NewRegistry()
	if _, ok := r.Get("nonexistent"); ok {
		t.Fatal("expected no factory for unregistered handler")
	}

	_, err := r.Reconstruct(job.Descriptor{Type: "nonexistent"})
	if !errors.Is(err, protostar.ErrUnknownHandler) {
		t.Fatalf("err = %v, want ErrUnknownHandler", err)
	}
}

func TestRegistry_MissingType(t *testing.T) {
	r := job.NewRegistry()
	_, err := r.Reconstruct(job.Descriptor{})
	if !errors.Is(err, protostar.ErrMissingHandlerType) {
		t.Fatalf("err = %v, want ErrMissingHandlerType", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	r := job.NewRegistry()
	noop := func(struct{}) job.Handler { return job.HandlerFunc(func(context.Context) job.Outcome { return job.Success() }) }

	job.RegisterDefinition(r, job.NewDefinition("job-a", noop))
	job.RegisterDefinition(r, job.NewDefinition("job-b", noop))
	job.RegisterDefinition(r, job.NewDefinition("job-c", noop))

	names := r.Names()
	sort.Strings(names)
	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %d", len(names))
	}
	for i, want := range []string{"job-a", "job-b", "job-c"} {
		if names[i] != want {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want)
		}
	}
}

func TestRegistry_MissingParameter(t *testing.T) {
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("send-email", newEmailHandler, "to", "subject"))

	props, _ := job.NewProperties(map[string]any{"to": "bob@example.com", "subject": nil})
	_, err := r.Reconstruct(job.Descriptor{Type: "send-email", Properties: props})
	if !errors.Is(err, protostar.ErrMissingParameter) {
		t.Fatalf("err = %v, want ErrMissingParameter", err)
	}

	var mp *protostar.MissingParameterError
	if !errors.As(err, &mp) {
		t.Fatalf("err %T is not *MissingParameterError", err)
	}
	if mp.Name != "subject" || mp.Handler != "send-email" {
		t.Errorf("got %+v, want subject on send-email", mp)
	}
}

func TestRegistry_FactoryMissingParameterGetsHandlerName(t *testing.T) {
	r := job.NewRegistry()
	r.Register("raw", func(p job.Properties) (job.Handler, error) {
		if _, err := p.String("path"); err != nil {
			return nil, err
		}
		return job.HandlerFunc(func(context.Context) job.Outcome { return job.Success() }), nil
	})

	_, err := r.Reconstruct(job.Descriptor{Type: "raw"})
	var mp *protostar.MissingParameterError
	if !errors.As(err, &mp) {
		t.Fatalf("err = %v, want *MissingParameterError", err)
	}
	if mp.Handler != "raw" {
		t.Errorf("Handler = %q, want %q", mp.Handler, "raw")
	}
}

func TestRegistry_InvalidProperties(t *testing.T) {
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("typed", func(p emailProps) job.Handler {
		t.Fatal("constructor should not be called with mistyped properties")
		return nil
	}))

	props := job.Properties{"to": []byte(`12`)}
	if _, err := r.Reconstruct(job.Descriptor{Type: "typed", Properties: props}); err == nil {
		t.Fatal("expected error for mistyped property")
	}
}

func TestRegistry_NilHandler(t *testing.T) {
	r := job.NewRegistry()
	r.Register("nil", func(job.Properties) (job.Handler, error) { return nil, nil })

	_, err := r.Reconstruct(job.Descriptor{Type: "nil"})
	if !errors.Is(err, protostar.ErrInvalidHandler) {
		t.Fatalf("err = %v, want ErrInvalidHandler", err)
	}
}

func TestRegistry_OverwriteFactory(t *testing.T) {
	r := job.NewRegistry()
	r.Register("overwrite", func(job.Properties) (job.Handler, error) {
		return nil, errors.New("old")
	})
	r.Register("overwrite", func(job.Properties) (job.Handler, error) {
		return job.HandlerFunc(func(context.Context) job.Outcome { return job.Finished() }), nil
	})

	h, err := r.Reconstruct(job.Descriptor{Type: "overwrite"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.Handle(context.Background()).Kind; got != job.KindFinished {
		t.Fatalf("Kind = %v, want finished", got)
	}
}
