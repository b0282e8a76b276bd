package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

type httpErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
}

type httpError struct {
	err        error
	statusCode int
}

func newHTTPError(err error, status int) error {
	return &httpError{err: err, statusCode: status}
}

func newHTTPErrorWithMessage(err error, message string, status int) error {
	return &httpError{err: fmt.Errorf("%s: %w", message, err), statusCode: status}
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s: %d", e.err.Error(), e.statusCode)
}

func (e *httpError) Unwrap() error {
	return e.err
}

func (e *httpError) WriteResponse(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(&httpErrorResponse{
		StatusCode: e.statusCode,
		Error:      e.err.Error(),
	})
}

// Responder turns message text into a reply. ok is false when nothing should be sent.
type Responder interface {
	Handle(ctx context.Context, text string) (reply string, ok bool)
}

const retryHeader = "X-Slack-Retry-Num"

var leadingMentionRegexp = regexp.MustCompile(`^\s*<@[A-Z0-9]+(?:\|[^>]*)?>\s*`)

type eventHandler struct {
	signingSecret string
	botUserID     string

	log         *log.Entry
	slackClient *slack.Client
	responder   Responder
}

type Option func(*eventHandler)

// WithBotUserID sets the bot's own user id so its messages are never answered.
func WithBotUserID(id string) Option {
	return func(h *eventHandler) {
		h.botUserID = id
	}
}

func WithLogger(logger *log.Entry) Option {
	return func(h *eventHandler) {
		h.log = logger
	}
}

func NewEventHandler(slackClient *slack.Client, signingSecret string, responder Responder, opts ...Option) http.Handler {
	h := &eventHandler{
		signingSecret: signingSecret,

		log:         log.NewEntry(log.StandardLogger()),
		slackClient: slackClient,
		responder:   responder,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "slack")
	return h
}

// inboundMessage is the part of a message or app_mention event the handler needs.
type inboundMessage struct {
	channel  string
	user     string
	botID    string
	subType  string
	text     string
	ts       string
	threadTS string
}

func (m inboundMessage) replyTS() string {
	if m.threadTS != "" {
		return m.threadTS
	}
	return m.ts
}

func (h *eventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	event, err := h.validateRequest(r)
	if err != nil {
		switch {
		case errors.Is(err, slack.ErrMissingHeaders), errors.Is(err, slack.ErrExpiredTimestamp):
			h.respondWithErr(w, r, newHTTPError(err, http.StatusBadRequest))
		default:
			h.respondWithErr(w, r, fmt.Errorf("validating request : %w", err))
		}
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		verificationEvent := event.Data.(*slackevents.EventsAPIURLVerificationEvent)
		_ = json.NewEncoder(w).Encode(&slackevents.ChallengeResponse{Challenge: verificationEvent.Challenge})
	case slackevents.CallbackEvent:
		if retry := r.Header.Get(retryHeader); retry != "" {
			// The first delivery is already being handled.
			h.log.WithField("retry", retry).Debug("acknowledging slack retry")
			w.Write([]byte(`{}`))
			return
		}

		var msg inboundMessage
		switch ev := event.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			msg = inboundMessage{
				channel:  ev.Channel,
				user:     ev.User,
				botID:    ev.BotID,
				text:     ev.Text,
				ts:       ev.TimeStamp,
				threadTS: ev.ThreadTimeStamp,
			}
		case *slackevents.MessageEvent:
			msg = inboundMessage{
				channel:  ev.Channel,
				user:     ev.User,
				botID:    ev.BotID,
				subType:  ev.SubType,
				text:     ev.Text,
				ts:       ev.TimeStamp,
				threadTS: ev.ThreadTimeStamp,
			}
			// Mentions also arrive as app_mention events and are answered there.
			if h.botUserID != "" && strings.Contains(msg.text, "<@"+h.botUserID) {
				w.Write([]byte(`{}`))
				return
			}
		default:
			h.respondWithErr(w, r, newHTTPError(errors.New("unhandled event"), http.StatusNotImplemented))
			return
		}

		if h.fromBot(msg) {
			w.Write([]byte(`{}`))
			return
		}

		// Provider calls run to completion even if Slack hangs up on us.
		ctx := context.WithoutCancel(r.Context())
		reply, ok := h.responder.Handle(ctx, leadingMentionRegexp.ReplaceAllString(msg.text, ""))
		if !ok {
			w.Write([]byte(`{}`))
			return
		}

		_, _, err = h.slackClient.PostMessageContext(
			ctx,
			msg.channel,
			slack.MsgOptionText(reply, false),
			slack.MsgOptionTS(msg.replyTS()),
			slack.MsgOptionBroadcast(),
		)
		if err != nil {
			// Best effort attempt to send a message indicating failure
			_, _, _ = h.slackClient.PostMessageContext(
				ctx,
				msg.channel, slack.MsgOptionText("Sorry, I messed something up... Try again later :poop:", true),
				slack.MsgOptionTS(msg.replyTS()),
				slack.MsgOptionBroadcast(),
			)
			h.respondWithErr(w, r, newHTTPErrorWithMessage(err, "posting reply", http.StatusInternalServerError))
			return
		}
		w.Write([]byte(`{}`))
	default:
		h.respondWithErr(w, r, newHTTPError(errors.New("unhandled event"), http.StatusNotImplemented))
	}
}

func (h *eventHandler) fromBot(msg inboundMessage) bool {
	return msg.botID != "" ||
		msg.subType == "bot_message" ||
		(h.botUserID != "" && msg.user == h.botUserID)
}

func (h *eventHandler) validateRequest(r *http.Request) (slackevents.EventsAPIEvent, error) {
	if r.Method != http.MethodPost {
		return slackevents.EventsAPIEvent{}, newHTTPError(fmt.Errorf("invalid method: %s", r.Method), http.StatusMethodNotAllowed)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return slackevents.EventsAPIEvent{}, fmt.Errorf("reading request body: %w", err)
	}
	defer r.Body.Close()

	if h.signingSecret == "" {
		h.log.Warn("no signing secret configured, skipping request verification")
	} else {
		sv, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
		if err != nil {
			return slackevents.EventsAPIEvent{}, fmt.Errorf("building slack secrets verifier: %w", err)
		}

		if _, err := sv.Write(body); err != nil {
			return slackevents.EventsAPIEvent{}, newHTTPErrorWithMessage(err, "verifying signature", http.StatusInternalServerError)
		}
		if err := sv.Ensure(); err != nil {
			return slackevents.EventsAPIEvent{}, newHTTPErrorWithMessage(err, "verifying signature", http.StatusUnauthorized)
		}
	}

	// NOTE prefer verifying signature over verification token.
	return slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
}

func (h *eventHandler) respondWithErr(w http.ResponseWriter, r *http.Request, err error) error {
	h.log.WithError(err).Errorf("%s %s - responding with error", r.Method, r.URL.String())

	var he *httpError
	if errors.As(err, &he) {
		w.WriteHeader(he.statusCode)
		return he.WriteResponse(w)
	}

	w.WriteHeader(http.StatusInternalServerError)
	return json.NewEncoder(w).Encode(&httpErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Error:      err.Error(),
	})
}
