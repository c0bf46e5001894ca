package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/agartha-dev/otenz/internal/domain"
	"github.com/agartha-dev/otenz/internal/history"
	"github.com/agartha-dev/otenz/internal/words"
)

const selfID = "bot-123"

type stubCompleter struct {
	reply   *domain.Reply
	err     error
	prompts []domain.Prompt
}

func (c *stubCompleter) Complete(_ context.Context, p domain.Prompt) (*domain.Reply, error) {
	c.prompts = append(c.prompts, p)
	if c.err != nil {
		return nil, c.err
	}
	return c.reply, nil
}

type sentMessage struct {
	channelID string
	text      string
}

type stubSender struct {
	sent   []sentMessage
	typing int
}

func (s *stubSender) Send(channelID, text string) error {
	s.sent = append(s.sent, sentMessage{channelID, text})
	return nil
}

func (s *stubSender) Typing(string) {
	s.typing++
}

func newTestOrchestrator(completer domain.Completer, sender domain.Sender, opts ...Option) (*Orchestrator, *history.Store) {
	hist := history.New(12)
	o := New(Config{
		SelfID:       selfID,
		SystemPrompt: "persona",
		Marker:       "!",
		Commands:     []string{"assign", "forget", "removerole"},
	}, hist, completer, sender, opts...)
	return o, hist
}

func dm(content string) domain.Inbound {
	return domain.Inbound{
		AuthorID:  "user-1",
		ChannelID: "chan-1",
		Content:   content,
	}
}

func guildMsg(content string, mentions bool) domain.Inbound {
	return domain.Inbound{
		AuthorID:    "user-1",
		ChannelID:   "chan-1",
		GuildID:     "guild-1",
		Content:     content,
		MentionsBot: mentions,
	}
}

func TestHandleMessage_DirectMessageGetsReply(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "hi back", Model: "m", Credential: "primary"}}
	sender := &stubSender{}
	o, hist := newTestOrchestrator(completer, sender)

	o.HandleMessage(context.Background(), dm("hello"))

	if len(sender.sent) != 1 || sender.sent[0].text != "hi back" {
		t.Fatalf("unexpected sends: %+v", sender.sent)
	}
	if sender.typing != 1 {
		t.Errorf("expected one typing signal, got %d", sender.typing)
	}

	turns := hist.Turns("chan-1")
	if len(turns) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[0].Content != "hello" {
		t.Errorf("user turn wrong: %+v", turns[0])
	}
	if turns[1].Role != domain.RoleAssistant || turns[1].Content != "hi back" {
		t.Errorf("assistant turn wrong: %+v", turns[1])
	}
}

func TestHandleMessage_SelfGuard(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "x"}}
	sender := &stubSender{}
	// Interjection odds of 1-in-1 would fire on every message; the guard
	// must short-circuit even that.
	list := words.New([]string{"bruh"}, 1, words.WithRand(rand.New(rand.NewPCG(1, 2))))
	o, hist := newTestOrchestrator(completer, sender, WithInterjections(list))

	msg := dm("hello")
	msg.AuthorID = selfID
	o.HandleMessage(context.Background(), msg)

	if len(sender.sent) != 0 {
		t.Errorf("self message produced sends: %+v", sender.sent)
	}
	if len(completer.prompts) != 0 {
		t.Error("self message reached the completer")
	}
	if len(hist.Turns("chan-1")) != 0 {
		t.Error("self message mutated history")
	}
}

func TestHandleMessage_GuildWithoutMentionIgnored(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "x"}}
	sender := &stubSender{}
	o, _ := newTestOrchestrator(completer, sender)

	o.HandleMessage(context.Background(), guildMsg("just chatting", false))

	if len(completer.prompts) != 0 {
		t.Error("unmentioned guild message triggered a completion")
	}
	if len(sender.sent) != 0 {
		t.Errorf("unexpected sends: %+v", sender.sent)
	}
}

func TestHandleMessage_GuildMentionStripped(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "sure"}}
	sender := &stubSender{}
	o, hist := newTestOrchestrator(completer, sender)

	o.HandleMessage(context.Background(), guildMsg("<@"+selfID+"> what's up?", true))

	if len(completer.prompts) != 1 {
		t.Fatal("expected one completion call")
	}
	if got := completer.prompts[0].User; got != "what's up?" {
		t.Errorf("mention not stripped: %q", got)
	}
	// History records the normalized text, not the raw mention.
	if turns := hist.Turns("chan-1"); turns[0].Content != "what's up?" {
		t.Errorf("history recorded %q", turns[0].Content)
	}
}

func TestHandleMessage_NicknameMentionStripped(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "sure"}}
	sender := &stubSender{}
	o, _ := newTestOrchestrator(completer, sender)

	o.HandleMessage(context.Background(), guildMsg("<@!"+selfID+"> hey", true))

	if got := completer.prompts[0].User; got != "hey" {
		t.Errorf("nickname mention not stripped: %q", got)
	}
}

func TestHandleMessage_BareMentionGetsFiller(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "yo"}}
	sender := &stubSender{}
	o, _ := newTestOrchestrator(completer, sender)

	o.HandleMessage(context.Background(), guildMsg("<@"+selfID+">", true))

	if got := completer.prompts[0].User; got != "hey" {
		t.Errorf("empty mention should use filler, got %q", got)
	}
}

func TestHandleMessage_CommandSuppressesResponse(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "x"}}
	sender := &stubSender{}
	o, hist := newTestOrchestrator(completer, sender)

	// Even a DM, which is otherwise always eligible.
	o.HandleMessage(context.Background(), dm("!forget"))
	// And the lenient suffix form.
	o.HandleMessage(context.Background(), dm("forget !"))

	if len(completer.prompts) != 0 {
		t.Error("command text triggered a completion")
	}
	if len(hist.Turns("chan-1")) != 0 {
		t.Error("command text mutated history")
	}
}

func TestHandleMessage_FailureLeavesHistoryUntouched(t *testing.T) {
	completer := &stubCompleter{err: errors.New("every rung failed")}
	sender := &stubSender{}
	o, hist := newTestOrchestrator(completer, sender)

	hist.Append("chan-1", domain.RoleUser, "before")
	hist.Append("chan-1", domain.RoleAssistant, "reply before")

	o.HandleMessage(context.Background(), dm("hello?"))

	if len(sender.sent) != 1 || sender.sent[0].text != failureNotice {
		t.Fatalf("expected only the failure notice, got %+v", sender.sent)
	}

	turns := hist.Turns("chan-1")
	if len(turns) != 2 || turns[0].Content != "before" || turns[1].Content != "reply before" {
		t.Errorf("history changed on failure: %+v", turns)
	}
}

func TestHandleMessage_EscalationNoticesPrecedeReply(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{
		Text:    "still here",
		Notices: []string{"(switched to backup key — still alive fr fr)"},
	}}
	sender := &stubSender{}
	o, _ := newTestOrchestrator(completer, sender)

	o.HandleMessage(context.Background(), dm("hello"))

	if len(sender.sent) != 2 {
		t.Fatalf("expected notice + reply, got %+v", sender.sent)
	}
	if sender.sent[0].text != "(switched to backup key — still alive fr fr)" {
		t.Errorf("notice not sent first: %q", sender.sent[0].text)
	}
	if sender.sent[1].text != "still here" {
		t.Errorf("reply not sent after notice: %q", sender.sent[1].text)
	}
}

func TestHandleMessage_HistoryBoundAfterManyExchanges(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "ack"}}
	sender := &stubSender{}
	o, hist := newTestOrchestrator(completer, sender)

	for i := 0; i < 10; i++ {
		o.HandleMessage(context.Background(), dm(fmt.Sprintf("msg-%d", i)))
	}

	turns := hist.Turns("chan-1")
	if len(turns) != 12 {
		t.Fatalf("expected 12 turns, got %d", len(turns))
	}
	if turns[0].Content != "msg-4" {
		t.Errorf("oldest retained turn = %q, want msg-4", turns[0].Content)
	}
}

func TestHandleMessage_PromptUsesHistorySnapshot(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "ack"}}
	sender := &stubSender{}
	o, hist := newTestOrchestrator(completer, sender)

	hist.Append("chan-1", domain.RoleUser, "old question")
	hist.Append("chan-1", domain.RoleAssistant, "old answer")

	o.HandleMessage(context.Background(), dm("new question"))

	p := completer.prompts[0]
	if p.System != "persona" {
		t.Errorf("system prompt = %q", p.System)
	}
	if len(p.History) != 2 || p.History[0].Content != "old question" {
		t.Errorf("history snapshot wrong: %+v", p.History)
	}
	if p.User != "new question" {
		t.Errorf("user turn = %q", p.User)
	}
}

func TestHandleMessage_InterjectionIndependentOfCommand(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "x"}}
	sender := &stubSender{}
	list := words.New([]string{"bruh"}, 1, words.WithRand(rand.New(rand.NewPCG(1, 2))))
	o, _ := newTestOrchestrator(completer, sender, WithInterjections(list))

	// A command suppresses the AI response but never the interjection.
	o.HandleMessage(context.Background(), dm("!forget"))

	if len(sender.sent) != 1 || sender.sent[0].text != "bruh" {
		t.Fatalf("expected only the interjection, got %+v", sender.sent)
	}
	if len(completer.prompts) != 0 {
		t.Error("command text triggered a completion")
	}
}

func TestHandleMessage_InterjectionAlongsideReply(t *testing.T) {
	completer := &stubCompleter{reply: &domain.Reply{Text: "hey hey"}}
	sender := &stubSender{}
	list := words.New([]string{"bruh"}, 1, words.WithRand(rand.New(rand.NewPCG(1, 2))))
	o, _ := newTestOrchestrator(completer, sender, WithInterjections(list))

	o.HandleMessage(context.Background(), dm("hello"))

	if len(sender.sent) != 2 {
		t.Fatalf("expected interjection and reply, got %+v", sender.sent)
	}
	if sender.sent[0].text != "bruh" || sender.sent[1].text != "hey hey" {
		t.Errorf("unexpected send order: %+v", sender.sent)
	}
}

func TestNormalize_DMKeepsRawText(t *testing.T) {
	msg := dm("  spaced out  ")
	if got := normalize(msg, selfID); got != "  spaced out  " {
		t.Errorf("DM text should pass through untouched, got %q", got)
	}
}

func TestNormalize_WhitespaceOnlyGetsFiller(t *testing.T) {
	if got := normalize(dm("   "), selfID); got != fillerContent {
		t.Errorf("got %q, want filler", got)
	}
}
