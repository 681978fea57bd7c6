package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythia/internal/services/agent"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

type stubAgent struct {
	gotReq agent.AskRequest
	resp   agent.AskResponse
	err    error
}

func (s *stubAgent) Ask(_ context.Context, req agent.AskRequest) (*agent.AskResponse, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &s.resp, nil
}

type stubDispatcher struct {
	out string
	err error
}

func (s *stubDispatcher) Handle(context.Context, string) (string, error) {
	return s.out, s.err
}

func TestAnswerRoutesThroughAgent(t *testing.T) {
	ag := &stubAgent{resp: agent.AskResponse{Result: "Top Markets:"}}
	b := &Bot{agent: ag, log: logger.Get()}

	got := b.answer(context.Background(), 42, "top markets")
	assert.Equal(t, "Top Markets:", got)
	assert.Equal(t, "tg:42", ag.gotReq.SessionID)
	assert.True(t, ag.gotReq.Execute)
	assert.Equal(t, agent.FormatText, ag.gotReq.Format)
}

func TestAnswerSurfacesInBandError(t *testing.T) {
	ag := &stubAgent{resp: agent.AskResponse{Error: "Sorry, I can't answer that question."}}
	b := &Bot{agent: ag, log: logger.Get()}

	got := b.answer(context.Background(), 1, "weather?")
	assert.Equal(t, "Sorry, I can't answer that question.", got)
}

func TestAnswerFallsBackToDispatcher(t *testing.T) {
	b := &Bot{dispatcher: &stubDispatcher{out: "Market Activity:"}, log: logger.Get()}

	got := b.answer(context.Background(), 1, "market stats")
	assert.Equal(t, "Market Activity:", got)
}

func TestAnswerTransportFailureIsGeneric(t *testing.T) {
	ag := &stubAgent{err: errors.New("planner down")}
	b := &Bot{agent: ag, log: logger.Get()}

	got := b.answer(context.Background(), 1, "top markets")
	assert.Equal(t, "Something went wrong, please try again.", got)
}

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, splitMessage("", 10))
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	long := strings.Repeat("line\n", 100)
	chunks := splitMessage(long, 42)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 42)
		assert.True(t, strings.HasSuffix(strings.TrimRight(chunk, "\n"), "line"), "chunks break on line boundaries")
	}
	assert.Equal(t, strings.ReplaceAll(long, "\n", ""), strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
}
