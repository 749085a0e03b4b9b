package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peercall/peercall/internal/client"
	"github.com/peercall/peercall/internal/config"
	"github.com/peercall/peercall/internal/domain"
	"github.com/peercall/peercall/internal/media"
	"github.com/peercall/peercall/lib/logger/sl"
)

func main() {
	var (
		serverURL string
		roomID    string
		name      string
		create    bool
	)
	flag.StringVar(&serverURL, "server", "ws://localhost:8080/ws", "signaling server url")
	flag.StringVar(&roomID, "room", "", "room id (1-999)")
	flag.StringVar(&name, "name", "", "display name")
	flag.BoolVar(&create, "create", false, "create the room if it does not exist")

	_ = godotenv.Load(".env")
	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sig, err := client.Dial(ctx, serverURL, log)
	if err != nil {
		log.Error("failed to reach signaling server", sl.Err(err))
		os.Exit(1)
	}
	defer sig.Close()

	events := client.Events{
		OnEntryApproved: func(approved domain.EntryApproved) {
			log.Info("admitted to room",
				slog.String("role", string(approved.Role)),
				slog.String("host_name", approved.HostName),
			)
		},
		OnEntryWaiting: func(waiting domain.EntryWaiting) {
			log.Info("waiting for admission",
				slog.String("host_name", waiting.HostName),
				slog.Bool("host_online", waiting.HostOnline),
			)
		},
		OnEntryDenied: func(reason string, revoked bool) {
			log.Warn("room entry refused", slog.String("reason", reason), slog.Bool("revoked", revoked))
			stop()
		},
		OnMeetingEnded: func(ended domain.MeetingEnded) {
			log.Info("meeting ended by host", slog.String("host_name", ended.HostName))
			stop()
		},
		OnParticipants: func(participants []domain.ParticipantInfo) {
			names := make([]string, 0, len(participants))
			for _, p := range participants {
				names = append(names, p.Name)
			}
			log.Info("participants", slog.Any("names", names))
		},
		OnChat: func(msg domain.ChatMessage) {
			log.Info("chat", slog.String("from", msg.Name), slog.String("message", msg.Message))
		},
	}

	orch := client.NewOrchestrator(sig, media.NewSyntheticCapture(), cfg.WebRTC.STUNServers, events, log)
	defer orch.Leave()

	if err := orch.StartMedia("default", "default"); err != nil {
		log.Error("failed to start capture", sl.Err(err))
		os.Exit(1)
	}

	intent := domain.IntentJoin
	if create {
		intent = domain.IntentCreate
	} else {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Signaling.RequestTimeout)
		exists, err := orch.RoomExists(checkCtx, roomID)
		cancel()
		if err != nil {
			log.Error("room existence check failed", sl.Err(err))
			os.Exit(1)
		}
		if !exists {
			log.Error("room not found", slog.String("room_id", roomID))
			os.Exit(1)
		}
	}

	joinCtx, cancel := context.WithTimeout(ctx, cfg.Signaling.RequestTimeout)
	ack, err := orch.Join(joinCtx, roomID, name, intent)
	cancel()
	if err != nil {
		log.Error("join failed", sl.Err(err))
		os.Exit(1)
	}
	if ack.Status != domain.JoinJoined && ack.Status != domain.JoinWaiting {
		log.Error("join rejected", slog.String("status", string(ack.Status)), slog.String("details", ack.Error))
		os.Exit(1)
	}

	<-ctx.Done()
}
