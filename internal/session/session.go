package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/answer"
	"ai-interview-copilot/internal/detect"
	"ai-interview-copilot/internal/embed"
	"ai-interview-copilot/internal/events"
	"ai-interview-copilot/internal/knowledge"
	"ai-interview-copilot/internal/match"
	"ai-interview-copilot/internal/models"
	"ai-interview-copilot/internal/observability/metrics"
	"ai-interview-copilot/internal/stt"
	"ai-interview-copilot/internal/store"
	"ai-interview-copilot/internal/transcode"
	"ai-interview-copilot/internal/vector"
)

// SendFunc delivers one message to the connected client. Implementations
// must be safe for concurrent use; the coordinator calls it from multiple
// goroutines.
type SendFunc func(msg ServerMessage) error

// Deps are the shared collaborators a session needs. Everything with
// per-session state (knowledge index, matcher, transcoder) is built inside
// the session itself.
type Deps struct {
	STTFactory   stt.Factory
	STTConfig    stt.Config
	BridgeConfig transcode.Config
	Detector     *detect.Detector
	Orchestrator *answer.Orchestrator
	Decomposer   *match.Decomposer
	Embedder     embed.Embedder
	VectorStore  vector.Store
	MatchConfig  match.Config
	Profiles     store.ProfileLoader
	Publisher    *events.Publisher
}

// Session coordinates one interview connection. All inbound traffic is
// serialized by the connection read loop; the transcript event loop and at
// most one answer cycle run as background goroutines.
type Session struct {
	id      string
	deps    Deps
	send    SendFunc
	log     zerolog.Logger
	metrics *metrics.Metrics

	lifecycle *Lifecycle
	index     *knowledge.Index
	matcher   *match.Matcher

	bridge  *transcode.Bridge
	backend stt.Backend
	events  chan stt.Event
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu           sync.Mutex
	language     string
	userID       string
	context      *models.CandidateContext
	profile      *models.InterviewProfile
	finals       []string
	turnID       int
	processing   bool
	history      []models.HistoryEntry
	usedExamples []string
	started      time.Time
	questions    int

	closeOnce sync.Once
}

// New creates a session coordinator for one connection.
func New(id string, deps Deps, send SendFunc, log zerolog.Logger) *Session {
	index := knowledge.NewIndex()
	s := &Session{
		id:        id,
		deps:      deps,
		send:      send,
		log:       log,
		metrics:   metrics.DefaultMetrics,
		lifecycle: NewLifecycle(),
		index:     index,
		matcher:   match.New(index, deps.Embedder, deps.VectorStore, deps.Decomposer, deps.MatchConfig, log),
		started:   time.Now(),
	}
	s.metrics.SessionsTotal.Inc()
	s.metrics.SessionsActive.Inc()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.lifecycle.State() }

// HandleBinary forwards one raw audio chunk. The transcoder pipeline is
// started lazily on the first chunk.
func (s *Session) HandleBinary(ctx context.Context, chunk []byte) {
	if s.lifecycle.IsClosed() {
		return
	}

	s.mu.Lock()
	if s.bridge == nil {
		if err := s.startPipeline(ctx); err != nil {
			s.mu.Unlock()
			s.log.Error().Err(err).Msg("Failed to start audio pipeline")
			s.sendMsg(errorMsg("failed to start transcription"))
			return
		}
	}
	bridge := s.bridge
	s.mu.Unlock()

	s.metrics.AudioChunksReceived.Inc()
	s.metrics.AudioBytesReceived.Add(float64(len(chunk)))
	if !bridge.Feed(chunk) {
		s.log.Warn().Msg("Dropped audio chunk, bridge not accepting input")
	}
}

// startPipeline builds the transcription backend and the transcoder bridge.
// Caller holds s.mu.
func (s *Session) startPipeline(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	cfg := s.deps.STTConfig
	if s.language != "" {
		cfg.LanguageCode = s.language
	}
	backend, err := s.deps.STTFactory.NewBackend(ctx, cfg)
	if err != nil {
		cancel()
		return err
	}

	eventCh := make(chan stt.Event, 16)
	if err := backend.Start(ctx, eventCh); err != nil {
		cancel()
		return err
	}

	bridge := transcode.New(s.deps.BridgeConfig, backend.SendPCM, func(err error) {
		s.sendMsg(errorMsg("audio decoding degraded, please restart audio"))
	}, s.log)
	if err := bridge.Start(); err != nil {
		backend.Close()
		cancel()
		return err
	}

	s.backend = backend
	s.bridge = bridge
	s.events = eventCh
	s.cancel = cancel
	if err := s.lifecycle.StartListening(); err != nil {
		s.log.Warn().Err(err).Msg("Unexpected state starting pipeline")
	}

	s.wg.Add(1)
	go s.eventLoop(ctx, eventCh)

	s.log.Info().Str("language", cfg.LanguageCode).Msg("Audio pipeline started")
	return nil
}

// eventLoop consumes transcription events until the backend closes or the
// session is torn down.
func (s *Session) eventLoop(ctx context.Context, eventCh <-chan stt.Event) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			switch ev.Kind {
			case stt.EventTranscript:
				s.handleTranscript(ctx, ev)
			case stt.EventError:
				s.log.Error().Err(ev.Err).Msg("Transcription backend error")
				s.sendMsg(errorMsg("transcription error"))
			case stt.EventClosed:
				return
			}
		}
	}
}

func (s *Session) handleTranscript(ctx context.Context, ev stt.Event) {
	s.mu.Lock()
	if ev.IsFinal {
		s.finals = append(s.finals, ev.Text)
		s.turnID++
	}
	accumulated := strings.Join(s.finals, " ")
	if !ev.IsFinal {
		if accumulated == "" {
			accumulated = ev.Text
		} else {
			accumulated += " " + ev.Text
		}
	}

	startCycle := false
	covered := len(s.finals)
	if ev.IsFinal && !s.processing {
		// A cycle in flight keeps its transcript; new finals stay
		// buffered in s.finals for the next cycle.
		if err := s.lifecycle.BeginCycle(); err == nil {
			s.processing = true
			startCycle = true
		}
	}
	s.mu.Unlock()

	if ev.IsFinal {
		s.metrics.TranscriptsFinal.Inc()
	} else {
		s.metrics.TranscriptsInterim.Inc()
	}

	s.sendMsg(transcriptionMsg(ev.Text, accumulated, ev.IsFinal))

	if startCycle {
		s.wg.Add(1)
		go s.runCycle(ctx, accumulated, covered)
	}
}

// runCycle executes one detection and answering pass over text, which
// covers the first covered buffered finals. Exactly one cycle runs at a
// time per session.
func (s *Session) runCycle(ctx context.Context, text string, covered int) {
	defer s.wg.Done()
	consumed := false
	defer func() {
		s.endCycle(consumed, covered)
	}()

	if !detect.IsLikelyQuestion(text) {
		return
	}

	question := s.deps.Detector.Detect(ctx, text)
	if question.Text == "" {
		return
	}
	if !question.Complete {
		s.metrics.QuestionsIncomplete.Inc()
		s.log.Debug().Str("text", question.Text).Msg("Question incomplete, waiting for more transcript")
		return
	}

	s.metrics.QuestionsDetected.WithLabelValues(string(question.Type)).Inc()
	s.sendMsg(questionDetectedMsg(question))

	if err := s.lifecycle.BeginAnswering(); err != nil {
		s.log.Warn().Err(err).Msg("Cannot enter answering state")
		return
	}
	s.answerQuestion(ctx, question)
	consumed = true
}

// endCycle releases the cycle gate. When the cycle consumed its
// transcript, the finals it covered are dropped; finals that arrived
// mid-cycle stay buffered for the next one.
func (s *Session) endCycle(consumed bool, covered int) {
	s.mu.Lock()
	if consumed && covered <= len(s.finals) {
		s.finals = append([]string(nil), s.finals[covered:]...)
	}
	s.processing = false
	s.mu.Unlock()
	s.lifecycle.EndCycle()
}

func (s *Session) answerQuestion(ctx context.Context, question models.DetectedQuestion) {
	s.mu.Lock()
	s.questions++
	userID := s.userID
	req := answer.Request{
		Question:     question,
		Context:      s.context,
		Profile:      s.profile,
		History:      append([]models.HistoryEntry(nil), s.history...),
		UsedExamples: append([]string(nil), s.usedExamples...),
	}
	s.mu.Unlock()

	s.sendMsg(answerTemporaryMsg(answer.StallingText(question.Type)))

	candidates := s.matcher.Match(ctx, question.Text, userID)

	if best, ok := s.deps.Orchestrator.DirectMatch(candidates); ok {
		ans := s.deps.Orchestrator.Retrieve(question.Text, best)
		s.sendMsg(answerMsg(question.Text, ans, best.Item.ID))
		s.recordTurn(ctx, ans, best.Item.ID)
		return
	}

	req.Candidates = candidates
	s.sendMsg(streamStartMsg(question.Text))
	ans, err := s.deps.Orchestrator.Synthesize(ctx, req, func(chunk string) error {
		return s.send(streamChunkMsg(chunk))
	})
	s.sendMsg(streamEndMsg(question.Text))
	if err != nil {
		s.log.Error().Err(err).Str("question", question.Text).Msg("Answer generation failed")
		return
	}
	s.recordTurn(ctx, ans, "")
}

// recordTurn appends history and, for synthesized answers, usage memory.
func (s *Session) recordTurn(ctx context.Context, ans models.GeneratedAnswer, matchedItemID string) {
	s.mu.Lock()
	s.history = append(s.history, models.HistoryEntry{
		Question: ans.Question,
		Answer:   ans.Text,
		Source:   ans.Source,
	})
	if len(ans.ExamplesUsed) > 0 {
		s.usedExamples = append(s.usedExamples, ans.ExamplesUsed...)
	}
	userID := s.userID
	s.mu.Unlock()

	if s.deps.Publisher != nil {
		event := models.UsageEvent{
			Question:      ans.Question,
			ExamplesUsed:  ans.ExamplesUsed,
			MatchedItemID: matchedItemID,
			Source:        string(ans.Source),
			Timestamp:     time.Now().UTC(),
		}
		if err := s.deps.Publisher.PublishUsage(ctx, s.id, userID, event); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish usage event")
		}
	}
}

// HandleControl processes one inbound control message.
func (s *Session) HandleControl(ctx context.Context, msg ClientMessage) {
	if s.lifecycle.IsClosed() {
		return
	}

	switch msg.Type {
	case TypeConfig:
		s.handleConfig(msg)
	case TypeContext:
		s.handleContext(ctx, msg)
	case TypeClear:
		s.handleClear()
	case TypeGenerateAnswer:
		s.handleGenerateAnswer(ctx, msg)
	case TypeFinalize:
		s.handleFinalize()
	default:
		s.sendMsg(errorMsg("unknown message type: " + msg.Type))
	}
}

func (s *Session) handleConfig(msg ClientMessage) {
	s.mu.Lock()
	if msg.Language != "" {
		s.language = msg.Language
	}
	s.mu.Unlock()

	s.log.Info().Str("language", msg.Language).Msg("Session configured")
	s.sendMsg(ServerMessage{Type: TypeConfigAck})
}

func (s *Session) handleContext(ctx context.Context, msg ClientMessage) {
	cc := &models.CandidateContext{
		ResumeText:    msg.ResumeText,
		StarStories:   msg.StarStories,
		TalkingPoints: msg.TalkingPoints,
		QAPairs:       msg.QAPairs,
	}

	s.index.Rebuild(cc.QAPairs)

	var profile *models.InterviewProfile
	if s.deps.Profiles != nil && msg.UserID != "" {
		p, err := s.deps.Profiles.LoadProfile(ctx, msg.UserID)
		if err != nil {
			s.log.Warn().Err(err).Str("userId", msg.UserID).Msg("Failed to load profile")
		} else {
			profile = p
		}
	}

	s.mu.Lock()
	s.userID = msg.UserID
	s.context = cc
	s.profile = profile
	s.mu.Unlock()

	s.syncVectors(ctx, msg.UserID, cc.QAPairs)

	s.log.Info().
		Str("userId", msg.UserID).
		Int("qaPairs", len(cc.QAPairs)).
		Int("starStories", len(cc.StarStories)).
		Bool("hasProfile", profile != nil).
		Msg("Session context loaded")
	s.sendMsg(ServerMessage{Type: TypeContextAck, HasProfile: profile != nil})
}

// syncVectors pushes the session's Q&A pairs into the vector store in the
// background. Semantic search degrades gracefully while it runs.
func (s *Session) syncVectors(ctx context.Context, userID string, items []models.KnowledgeItem) {
	if s.deps.VectorStore == nil || s.deps.Embedder == nil || len(items) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		points := make([]vector.Point, 0, len(items))
		for _, item := range items {
			vec, err := s.deps.Embedder.Embed(ctx, item.Question)
			if err != nil {
				s.log.Warn().Err(err).Str("itemId", item.ID).Msg("Failed to embed knowledge item")
				continue
			}
			points = append(points, vector.Point{ID: item.ID, Vector: vec, UserID: userID, Item: item})
		}
		if len(points) == 0 {
			return
		}
		if err := s.deps.VectorStore.Upsert(ctx, points); err != nil {
			s.log.Warn().Err(err).Msg("Failed to sync knowledge items to vector store")
		}
	}()
}

// handleClear resets the session to its post-connect state without closing
// the socket.
func (s *Session) handleClear() {
	s.stopPipeline()

	s.mu.Lock()
	s.finals = nil
	s.turnID = 0
	s.history = nil
	s.usedExamples = nil
	s.context = nil
	s.profile = nil
	s.processing = false
	s.mu.Unlock()

	s.index.Rebuild(nil)
	s.lifecycle.Reset()

	s.log.Info().Msg("Session cleared")
	s.sendMsg(ServerMessage{Type: TypeCleared})
}

// handleGenerateAnswer is the manual trigger that bypasses detection. It
// shares the single-cycle gate with automatic detection.
func (s *Session) handleGenerateAnswer(ctx context.Context, msg ClientMessage) {
	if msg.Question == "" {
		s.sendMsg(errorMsg("generate_answer requires a question"))
		return
	}

	question := models.DetectedQuestion{
		Text:       msg.Question,
		Type:       parseQuestionType(msg.QuestionType),
		Confidence: models.ConfidenceHigh,
		Complete:   true,
	}

	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		s.sendMsg(errorMsg("an answer is already in progress"))
		return
	}
	s.processing = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.endCycle(false, 0)

		s.metrics.QuestionsDetected.WithLabelValues(string(question.Type)).Inc()
		s.sendMsg(questionDetectedMsg(question))
		s.answerQuestion(ctx, question)
	}()
}

// handleFinalize flushes buffered audio through the decoder. Transcription
// continues for whatever the flush produces.
func (s *Session) handleFinalize() {
	s.mu.Lock()
	bridge := s.bridge
	s.mu.Unlock()

	if bridge != nil {
		if err := bridge.Finish(); err != nil {
			s.log.Warn().Err(err).Msg("Finalize failed")
		}
	}
	s.sendMsg(ServerMessage{Type: TypeFinalized})
}

// stopPipeline tears down the bridge and transcription backend. Idempotent.
func (s *Session) stopPipeline() {
	s.mu.Lock()
	bridge := s.bridge
	backend := s.backend
	cancel := s.cancel
	s.bridge = nil
	s.backend = nil
	s.events = nil
	s.cancel = nil
	s.mu.Unlock()

	if bridge != nil {
		bridge.Stop()
	}
	if backend != nil {
		if err := backend.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Error closing transcription backend")
		}
	}
	if cancel != nil {
		cancel()
	}
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.stopPipeline()
		s.lifecycle.Close()
		s.wg.Wait()

		s.mu.Lock()
		turns := s.turnID
		questions := s.questions
		userID := s.userID
		started := s.started
		s.mu.Unlock()

		if s.deps.Publisher != nil {
			closed := events.SessionClosed{
				SessionID:     s.id,
				UserID:        userID,
				Turns:         turns,
				QuestionCount: questions,
				StartedAt:     started,
				ClosedAt:      time.Now().UTC(),
			}
			if err := s.deps.Publisher.PublishSessionClosed(ctx, closed); err != nil {
				s.log.Warn().Err(err).Msg("Failed to publish session closed event")
			}
		}

		s.metrics.SessionsActive.Dec()
		s.metrics.SessionDuration.Observe(time.Since(started).Seconds())
		s.log.Info().Int("turns", turns).Int("questions", questions).Msg("Session closed")
	})
}

func (s *Session) sendMsg(msg ServerMessage) {
	if err := s.send(msg); err != nil {
		s.log.Debug().Err(err).Str("type", msg.Type).Msg("Failed to send message")
	}
}

func parseQuestionType(s string) models.QuestionType {
	switch models.QuestionType(s) {
	case models.QuestionBehavioral, models.QuestionTechnical, models.QuestionSituational:
		return models.QuestionType(s)
	default:
		return models.QuestionGeneral
	}
}
