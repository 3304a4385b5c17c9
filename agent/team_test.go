package agent

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callLog records member invocations across goroutines.
type callLog struct {
	mu    sync.Mutex
	names []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

// scriptedAgent writes a fixed answer to its sink or fails.
type scriptedAgent struct {
	BaseAgent
	answer string
	err    error
	delay  time.Duration
	log    *callLog

	mu      sync.Mutex
	queries []string
	stream  []bool
}

func newScriptedAgent(name, answer string, log *callLog) *scriptedAgent {
	return &scriptedAgent{BaseAgent: NewBaseAgent(name, "role of "+name), answer: answer, log: log}
}

func (a *scriptedAgent) Respond(rc *core.RunContext, query string) error {
	a.log.add(a.Name())
	a.mu.Lock()
	a.queries = append(a.queries, query)
	a.stream = append(a.stream, rc.Stream)
	a.mu.Unlock()

	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-rc.Done():
			return rc.Err()
		}
	}
	if a.err != nil {
		_, _ = io.WriteString(rc.Output, "partial")
		return a.err
	}
	_, err := io.WriteString(rc.Output, "\x1b[1m"+a.answer+"\x1b[0m")
	return err
}

func TestTeam_BroadcastDeclarationOrderExactlyOnce(t *testing.T) {
	log := &callLog{}
	web := newScriptedAgent("Web Agent", "NVDA news", log)
	fin := newScriptedAgent("finance agent", "NVDA buy", log)

	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: "merged answer"})

	team := NewTeam("Team", llm, []core.Agent{web, fin}, func(o *TeamOptions) {
		o.Instructions = []string{"Always include sources", "Use tables to display data"}
	})

	var out bytes.Buffer
	require.NoError(t, team.Respond(newRunContext(&out), "Summarize NVDA"))

	assert.Equal(t, []string{"Web Agent", "finance agent"}, log.all())
	assert.Equal(t, []string{"Summarize NVDA"}, web.queries)
	assert.Equal(t, []string{"Summarize NVDA"}, fin.queries)
	assert.Equal(t, []bool{false}, web.stream)
	assert.Equal(t, "merged answer", out.String())

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Contents[0].Text(), "- Always include sources\n- Use tables to display data")

	prompt := reqs[0].Contents[len(reqs[0].Contents)-1].Text()
	assert.True(t, strings.HasPrefix(prompt, "Summarize NVDA"))
	iWeb := strings.Index(prompt, "### Web Agent\n\nNVDA news")
	iFin := strings.Index(prompt, "### finance agent\n\nNVDA buy")
	require.GreaterOrEqual(t, iWeb, 0)
	require.GreaterOrEqual(t, iFin, 0)
	assert.Less(t, iWeb, iFin)
	assert.NotContains(t, prompt, "\x1b[")
}

func TestTeam_FailFast(t *testing.T) {
	log := &callLog{}
	boom := errors.New("duckduckgo unreachable")
	web := newScriptedAgent("Web Agent", "", log)
	web.err = boom
	fin := newScriptedAgent("finance agent", "ok", log)

	llm := model.NewMockModel("mock", "mock")
	err := NewTeam("Team", llm, []core.Agent{web, fin}).Respond(newRunContext(&bytes.Buffer{}), "q")
	require.Error(t, err)

	var me *MemberError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Web Agent", me.Member)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Web Agent"}, log.all())
	assert.Empty(t, llm.Requests())
}

func TestTeam_BestEffort(t *testing.T) {
	log := &callLog{}
	web := newScriptedAgent("Web Agent", "", log)
	web.err = errors.New("timeout")
	fin := newScriptedAgent("finance agent", "NVDA buy", log)

	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: "partial merge"})

	team := NewTeam("Team", llm, []core.Agent{web, fin}, func(o *TeamOptions) { o.BestEffort = true })
	var out bytes.Buffer
	require.NoError(t, team.Respond(newRunContext(&out), "q"))
	assert.Equal(t, "partial merge", out.String())
	assert.Equal(t, []string{"Web Agent", "finance agent"}, log.all())

	prompt := llm.Requests()[0].Contents[len(llm.Requests()[0].Contents)-1].Text()
	assert.Contains(t, prompt, "### Web Agent\n\nerror: timeout")
	assert.Contains(t, prompt, "### finance agent\n\nNVDA buy")
}

func TestTeam_ConcurrentKeepsDeclarationOrder(t *testing.T) {
	log := &callLog{}
	slow := newScriptedAgent("A", "first", log)
	slow.delay = 30 * time.Millisecond
	fast := newScriptedAgent("B", "second", log)

	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: "merged"})

	team := NewTeam("Team", llm, []core.Agent{slow, fast}, func(o *TeamOptions) { o.Concurrent = true })
	require.NoError(t, team.Respond(newRunContext(&bytes.Buffer{}), "q"))

	assert.ElementsMatch(t, []string{"A", "B"}, log.all())
	assert.Len(t, slow.queries, 1)
	assert.Len(t, fast.queries, 1)

	prompt := llm.Requests()[0].Contents[len(llm.Requests()[0].Contents)-1].Text()
	assert.Less(t, strings.Index(prompt, "### A"), strings.Index(prompt, "### B"))
}

func TestTeam_ConcurrentFailFastCancelsOthers(t *testing.T) {
	log := &callLog{}
	slow := newScriptedAgent("A", "never", log)
	slow.delay = 5 * time.Second
	failing := newScriptedAgent("B", "", log)
	failing.err = errors.New("boom")

	start := time.Now()
	err := NewTeam("Team", model.NewMockModel("mock", "mock"), []core.Agent{slow, failing}, func(o *TeamOptions) {
		o.Concurrent = true
	}).Respond(newRunContext(&bytes.Buffer{}), "q")

	var me *MemberError
	require.ErrorAs(t, err, &me)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTeam_ShowMemberResponses(t *testing.T) {
	log := &callLog{}
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: "merged"})

	team := NewTeam("Team", llm, []core.Agent{
		newScriptedAgent("A", "alpha", log),
		newScriptedAgent("B", "beta", log),
	}, func(o *TeamOptions) { o.ShowMemberResponses = true })

	var out bytes.Buffer
	require.NoError(t, team.Respond(newRunContext(&out), "q"))
	assert.Equal(t, "### A\n\nalpha\n\n### B\n\nbeta\n\nmerged", out.String())
}

func TestTeam_Delegate(t *testing.T) {
	log := &callLog{}
	web := newScriptedAgent("Web Agent", "web answer", log)
	fin := newScriptedAgent("finance agent", "finance answer", log)

	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(
		model.Turn{Calls: []core.FunctionCall{{
			ID:        "t1",
			Name:      "transfer_task_to_web_agent",
			Arguments: `{"task_description":"Find NVDA news","expected_output":"A list"}`,
		}}},
		model.Turn{Text: "final"},
	)

	team := NewTeam("Team", llm, []core.Agent{web, fin}, func(o *TeamOptions) { o.Mode = ModeDelegate })
	assert.Equal(t, ModeDelegate, team.Mode())
	assert.Len(t, team.Members(), 2)

	var out bytes.Buffer
	require.NoError(t, team.Respond(newRunContext(&out), "Summarize NVDA"))
	assert.Equal(t, "final", out.String())
	assert.Equal(t, []string{"Web Agent"}, log.all())
	assert.Equal(t, []string{"Find NVDA news\n\nThe expected output is: A list"}, web.queries)

	first := llm.Requests()[0]
	require.Len(t, first.Tools, 2)
	assert.Equal(t, "transfer_task_to_finance_agent", first.Tools[0].Function.Name)
	assert.Equal(t, "transfer_task_to_web_agent", first.Tools[1].Function.Name)
	assert.Contains(t, first.Contents[0].Text(), "Agent 1: Web Agent: role of Web Agent")

	contents := llm.Requests()[1].Contents
	frs := contents[len(contents)-1].FunctionResponses()
	require.Len(t, frs, 1)
	assert.Equal(t, "web answer", frs[0].Response)
}

func TestTeam_DelegateMemberFailure(t *testing.T) {
	log := &callLog{}
	web := newScriptedAgent("Web Agent", "", log)
	web.err = errors.New("rate limited")

	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Calls: []core.FunctionCall{{ID: "t1", Name: "transfer_task_to_web_agent", Arguments: `{"task_description":"x"}`}}})

	err := NewTeam("Team", llm, []core.Agent{web}, func(o *TeamOptions) { o.Mode = ModeDelegate }).
		Respond(newRunContext(&bytes.Buffer{}), "q")

	var me *MemberError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Web Agent", me.Member)
}

func TestTransferToolName(t *testing.T) {
	assert.Equal(t, "transfer_task_to_web_agent", transferToolName("Web Agent"))
	assert.Equal(t, "transfer_task_to_finance_agent", transferToolName("finance agent"))
	assert.Equal(t, "transfer_task_to_a_b2", transferToolName("  A--B2  "))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "broadcast", ModeBroadcast.String())
	assert.Equal(t, "delegate", ModeDelegate.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}
