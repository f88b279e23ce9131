package job

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"tickerpulse/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestPipelineJobRunsAtLeastOnce(t *testing.T) {
	var calls int32
	runner := &pipelineRunnerTestStub{calls: &calls}
	j := NewPipelineJob(trace.NewNoopTracerProvider().Tracer("test"), zerolog.Nop(), runner, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if atomic.LoadInt32(&calls) == 0 {
		t.Fatal("expected at least one pipeline run")
	}
}

func TestPipelineJobDisabledWithoutRunner(t *testing.T) {
	j := NewPipelineJob(trace.NewNoopTracerProvider().Tracer("test"), zerolog.Nop(), nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop on context cancellation")
	}
}

type pipelineRunnerTestStub struct {
	calls *int32
}

func (s *pipelineRunnerTestStub) RunOnce(ctx context.Context) (domain.BatchReport, error) {
	atomic.AddInt32(s.calls, 1)
	return domain.BatchReport{}, nil
}
