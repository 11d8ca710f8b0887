package ocr

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/ocrsum/internal/errors"
)

// fakeEngine records every lifecycle call and replays scripted statuses.
type fakeEngine struct {
	status StatusFunc

	loadErr      error
	paramsErr    error
	recognizeErr error
	terminateErr error
	output       *EngineOutput
	statuses     []Status

	loadedLanguage string
	params         Parameters
	terminated     int
}

func (e *fakeEngine) Load(ctx context.Context, language string) error {
	e.loadedLanguage = language
	e.status(Status{Phase: PhaseLoadingCore})
	e.status(Status{Phase: PhaseLoadingLanguage})
	if e.loadErr != nil {
		return e.loadErr
	}
	e.status(Status{Phase: PhaseInitializing})
	e.status(Status{Phase: PhaseInitialized})
	return nil
}

func (e *fakeEngine) SetParameters(params Parameters) error {
	e.params = params
	return e.paramsErr
}

func (e *fakeEngine) Recognize(ctx context.Context, image []byte) (*EngineOutput, error) {
	for _, s := range e.statuses {
		e.status(s)
	}
	if e.recognizeErr != nil {
		return nil, e.recognizeErr
	}
	return e.output, nil
}

func (e *fakeEngine) Terminate() error {
	e.terminated++
	return e.terminateErr
}

func factoryFor(e *fakeEngine) EngineFactory {
	return func(status StatusFunc) (Engine, error) {
		e.status = status
		return e, nil
	}
}

func confidence(v float64) *float64 { return &v }

type progressLog struct {
	percents []int
	messages []string
}

func (l *progressLog) record(percent int, message string) {
	l.percents = append(l.percents, percent)
	l.messages = append(l.messages, message)
}

func newTestProcessor(t *testing.T, e *fakeEngine) *Processor {
	t.Helper()
	p, err := NewProcessor(factoryFor(e))
	require.NoError(t, err)
	return p
}

func TestProcess_Success(t *testing.T) {
	engine := &fakeEngine{
		output: &EngineOutput{Text: "Hello world", Confidence: confidence(91.5)},
		statuses: []Status{
			{Phase: PhaseRecognizing, Progress: 0},
			{Phase: PhaseRecognizing, Progress: 0.5},
			{Phase: PhaseRecognizing, Progress: 1},
		},
	}
	p := newTestProcessor(t, engine)

	settings := Settings{Language: "deu", PageSegMode: 6, EngineMode: 2, Whitelist: "abc"}
	var log progressLog
	rec, err := p.Process(context.Background(), []byte("img"), log.record, settings)
	require.NoError(t, err)

	assert.Equal(t, "Hello world", rec.Text)
	assert.Equal(t, 91.5, rec.Confidence)
	assert.Equal(t, "deu", engine.loadedLanguage)
	assert.Equal(t, Parameters{
		EngineMode:              2,
		PageSegMode:             6,
		PreserveInterwordSpaces: true,
		Whitelist:               "abc",
	}, engine.params)
	assert.Equal(t, 1, engine.terminated)

	assert.Equal(t, []int{10, 20, 30, 40, 40, 70, 100, 100}, log.percents)
	assert.Equal(t, "Loading OCR engine...", log.messages[0])
	assert.Equal(t, "OCR engine ready", log.messages[3])
	assert.Equal(t, "Recognizing text...", log.messages[5])
	assert.Contains(t, log.messages[len(log.messages)-1], "Processing completed in")
}

func TestProcess_ReleasesEngineOnEveryPath(t *testing.T) {
	boom := fmt.Errorf("boom")
	cases := map[string]*fakeEngine{
		"load":       {loadErr: boom},
		"configure":  {paramsErr: boom},
		"recognize":  {recognizeErr: boom},
		"nil output": {},
		"success":    {output: &EngineOutput{Text: "ok"}},
		"terminate fails after success": {
			output:       &EngineOutput{Text: "ok"},
			terminateErr: boom,
		},
	}

	for name, engine := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestProcessor(t, engine)
			_, _ = p.Process(context.Background(), []byte("img"), nil, DefaultSettings())
			assert.Equal(t, 1, engine.terminated)
		})
	}
}

func TestProcess_WrapsFailuresAsRecognitionError(t *testing.T) {
	engine := &fakeEngine{recognizeErr: fmt.Errorf("bad image")}
	p := newTestProcessor(t, engine)

	_, err := p.Process(context.Background(), []byte("img"), nil, DefaultSettings())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrorRecognitionFailed))
	assert.Equal(t, "Failed to process image with OCR: bad image", err.Error())
}

func TestProcess_TerminateErrorDoesNotMaskCause(t *testing.T) {
	engine := &fakeEngine{
		paramsErr:    fmt.Errorf("invalid psm"),
		terminateErr: fmt.Errorf("terminate failed"),
	}
	p := newTestProcessor(t, engine)

	_, err := p.Process(context.Background(), []byte("img"), nil, DefaultSettings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid psm")
	assert.NotContains(t, err.Error(), "terminate failed")
}

func TestProcess_FactoryFailure(t *testing.T) {
	p, err := NewProcessor(func(StatusFunc) (Engine, error) {
		return nil, fmt.Errorf("no tessdata")
	})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), []byte("img"), nil, DefaultSettings())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrorRecognitionFailed))
	assert.Contains(t, err.Error(), "no tessdata")
}

func TestProcess_EmptyTextSafety(t *testing.T) {
	engine := &fakeEngine{output: &EngineOutput{}}
	p := newTestProcessor(t, engine)

	rec, err := p.Process(context.Background(), []byte("img"), nil, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "", rec.Text)
	assert.Equal(t, 0.0, rec.Confidence)
}

func TestProcess_ProgressIsMonotonicWithOutOfOrderPhases(t *testing.T) {
	engine := &fakeEngine{
		output: &EngineOutput{Text: "x"},
		statuses: []Status{
			{Phase: PhaseRecognizing, Progress: 0.8},
			{Phase: PhaseLoadingLanguage},
			{Phase: PhaseRecognizing, Progress: 0.3},
			{Phase: PhaseRecognizing, Progress: 1},
		},
	}
	p := newTestProcessor(t, engine)

	var log progressLog
	_, err := p.Process(context.Background(), []byte("img"), log.record, DefaultSettings())
	require.NoError(t, err)

	for i := 1; i < len(log.percents); i++ {
		assert.GreaterOrEqual(t, log.percents[i], log.percents[i-1], "percents %v", log.percents)
	}
	assert.Equal(t, 100, log.percents[len(log.percents)-1])
}

func TestProcess_DefaultsLanguage(t *testing.T) {
	engine := &fakeEngine{output: &EngineOutput{}}
	p := newTestProcessor(t, engine)

	_, err := p.Process(context.Background(), []byte("img"), nil, Settings{})
	require.NoError(t, err)
	assert.Equal(t, "eng", engine.loadedLanguage)
}

func TestProcess_ConcurrentCallsOwnTheirEngines(t *testing.T) {
	var mu sync.Mutex
	var engines []*fakeEngine
	p, err := NewProcessor(func(status StatusFunc) (Engine, error) {
		e := &fakeEngine{status: status, output: &EngineOutput{Text: "t"}}
		mu.Lock()
		engines = append(engines, e)
		mu.Unlock()
		return e, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Process(context.Background(), []byte("img"), nil, DefaultSettings())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, engines, 8)
	for _, e := range engines {
		assert.Equal(t, 1, e.terminated)
	}
}

func TestNewProcessor_RequiresFactory(t *testing.T) {
	_, err := NewProcessor(nil)
	assert.Error(t, err)
}
