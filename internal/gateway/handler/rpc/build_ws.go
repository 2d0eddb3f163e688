package rpc

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"previewkit/internal/compiler"
	"previewkit/internal/gateway/service/build"
	"previewkit/internal/logging"
	"previewkit/internal/metrics"
)

const (
	buildWSWriteWait = 10 * time.Second
	buildWSPongWait  = 60 * time.Second
	buildWSPingEvery = (buildWSPongWait * 9) / 10
	buildWSMaxFrame  = 8 << 20
)

var buildWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type buildWSInbound struct {
	Type       string            `json:"type"`
	RequestID  string            `json:"requestId,omitempty"`
	ProjectID  string            `json:"projectId,omitempty"`
	Name       string            `json:"name,omitempty"`
	Files      map[string]string `json:"files,omitempty"`
	EntryPoint string            `json:"entryPoint,omitempty"`
	Options    *compiler.Options `json:"options,omitempty"`
}

type buildWSOutbound struct {
	Type      string           `json:"type"`
	RequestID string           `json:"requestId,omitempty"`
	Result    *compiler.Result `json:"result,omitempty"`
	Preview   string           `json:"preview,omitempty"`
	Code      string           `json:"code,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// BuildStreamHandler serves the editor's live build socket. Every "build"
// message supersedes the one in flight.
type BuildStreamHandler struct {
	svc *build.Service
}

func NewBuildStreamHandler(svc *build.Service) *BuildStreamHandler {
	return &BuildStreamHandler{svc: svc}
}

func (h *BuildStreamHandler) HandleBuildWS(w http.ResponseWriter, r *http.Request) {
	conn, err := buildWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	metrics.AddWSConnections(1)
	defer metrics.AddWSConnections(-1)

	log := logging.WithContext(r.Context())
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	conn.SetReadLimit(buildWSMaxFrame)
	if err := conn.SetReadDeadline(time.Now().Add(buildWSPongWait)); err != nil {
		log.Warn("build ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(buildWSPongWait))
	})

	writeCh := make(chan buildWSOutbound, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(buildWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(buildWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(buildWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var (
		mu       sync.Mutex
		inflight context.CancelFunc
		builds   sync.WaitGroup
	)
	stopInflight := func() {
		mu.Lock()
		if inflight != nil {
			inflight()
			inflight = nil
		}
		mu.Unlock()
	}
	defer func() {
		stopInflight()
		cancel()
		builds.Wait()
		<-writerDone
	}()

	pushBuildWS(writeCh, buildWSOutbound{Type: "ready"})

	for {
		var in buildWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushBuildWS(writeCh, buildWSOutbound{Type: "pong"})
		case "cancel":
			stopInflight()
			pushBuildWS(writeCh, buildWSOutbound{Type: "cancelled", RequestID: in.RequestID})
		case "build":
			if len(in.Files) == 0 && in.ProjectID == "" {
				pushBuildWS(writeCh, buildWSOutbound{
					Type:      "error",
					RequestID: in.RequestID,
					Code:      "invalid_argument",
					Message:   errFilesOrProject.Error(),
				})
				continue
			}
			buildCtx, buildCancel := context.WithCancel(ctx)
			mu.Lock()
			if inflight != nil {
				inflight()
			}
			inflight = buildCancel
			mu.Unlock()

			pushBuildWS(writeCh, buildWSOutbound{Type: "building", RequestID: in.RequestID})
			builds.Add(1)
			go func(in buildWSInbound) {
				defer builds.Done()
				defer buildCancel()
				out, err := h.svc.Build(buildCtx, build.Input{
					ProjectID:  in.ProjectID,
					Name:       in.Name,
					Files:      in.Files,
					EntryPoint: in.EntryPoint,
					Options:    in.Options,
				})
				if buildCtx.Err() != nil {
					return
				}
				if err != nil {
					pushBuildWS(writeCh, buildWSOutbound{
						Type:      "error",
						RequestID: in.RequestID,
						Code:      connectCodeName(err),
						Message:   err.Error(),
					})
					return
				}
				pushBuildWS(writeCh, buildWSOutbound{
					Type:      "result",
					RequestID: in.RequestID,
					Result:    out.Result,
					Preview:   out.Page,
				})
			}(in)
		default:
			pushBuildWS(writeCh, buildWSOutbound{
				Type:      "error",
				RequestID: in.RequestID,
				Code:      "invalid_argument",
				Message:   "unsupported type: " + in.Type,
			})
		}
	}
}

func connectCodeName(err error) string {
	return connect.CodeOf(toConnectError(err)).String()
}

// pushBuildWS never blocks; when the queue is full the oldest message is
// dropped.
func pushBuildWS(writeCh chan buildWSOutbound, out buildWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
