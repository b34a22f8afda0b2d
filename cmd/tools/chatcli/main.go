package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/mannmitra/backend/internal/config"
	"github.com/zhouzirui/mannmitra/backend/internal/gateway"
	chatmodel "github.com/zhouzirui/mannmitra/backend/internal/model/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/service/conversation"
	"github.com/zhouzirui/mannmitra/backend/internal/service/response"
	"github.com/zhouzirui/mannmitra/backend/internal/service/tools"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	locale := flag.String("lang", cfg.Companion.Locale, "reply locale: english or hindi")
	user := flag.String("user", cfg.Companion.UserID, "user id recorded with mood entries")
	base := flag.String("gateway", cfg.Gateway.BaseURL, "persistence service base url")
	demo := flag.Bool("demo", cfg.Gateway.DemoMode, "log writes instead of calling the persistence service")
	timeout := flag.Duration("timeout", cfg.Gateway.Timeout, "persistence request timeout")
	flag.Parse()

	gw, err := gateway.NewClient(gateway.Config{BaseURL: *base, Timeout: *timeout, DemoMode: *demo})
	if err != nil {
		log.Fatalf("failed to create gateway client: %v", err)
	}

	clk := clock.New()
	launcher := tools.NewLauncher(gw, clk, cfg.Companion.Location, *timeout)
	ctrl := conversation.New(conversation.Config{
		SessionID:         fmt.Sprintf("cli-%d", time.Now().UnixNano()),
		UserID:            *user,
		Locale:            *locale,
		Location:          cfg.Companion.Location,
		ReplyDelay:        cfg.Companion.ReplyDelay,
		CrisisPromptDelay: cfg.Companion.CrisisPromptDelay,
	}, clk, response.NewGenerator(
		response.WithProbability(cfg.Companion.CulturalProbability),
		response.WithMoodMatching(cfg.Companion.CulturalMoodMatch),
	), gw, launcher)

	events, unsubscribe := ctrl.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range events {
			printEvent(os.Stdout, evt)
		}
	}()

	fmt.Println("MannMitra chat. Type a message, /help for commands.")
	runLoop(context.Background(), os.Stdin, ctrl, gw, *user)

	unsubscribe()
	ctrl.Close()
	<-done
	ctrl.WaitRecordings()
	launcher.Wait()
}

func runLoop(ctx context.Context, in io.Reader, ctrl *conversation.Controller, gw *gateway.Client, user string) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "/") {
			if _, err := ctrl.Submit(ctx, line); err != nil {
				fmt.Printf("! %v\n", err)
			}
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "/quit", "/exit":
			return
		case "/help":
			fmt.Println("/tap <id> [action]  activate a message (crisis card actions: call-now, try-breathing)")
			fmt.Println("/moods              list recorded moods")
			fmt.Println("/journal <date>     show the journal entry for YYYY-MM-DD")
			fmt.Println("/streak             affirmation streak")
			fmt.Println("/quit               leave")
		case "/tap":
			if len(fields) < 2 {
				fmt.Println("! usage: /tap <id> [action]")
				continue
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fmt.Printf("! invalid id %q\n", fields[1])
				continue
			}
			action := ""
			if len(fields) > 2 {
				action = fields[2]
			}
			if err := ctrl.Activate(id, action); err != nil {
				fmt.Printf("! %v\n", err)
			}
		case "/moods":
			moods, err := gw.GetMoods(ctx, user)
			if err != nil {
				log.Printf("[gateway] failed to load moods: %v", err)
			}
			for _, m := range moods {
				fmt.Printf("  %s  %-8s %s\n", m.Date, m.Mood, m.Note)
			}
			fmt.Printf("  (%d entries)\n", len(moods))
		case "/journal":
			if len(fields) < 2 {
				fmt.Println("! usage: /journal <YYYY-MM-DD>")
				continue
			}
			content, err := gw.GetJournal(ctx, fields[1])
			if err != nil {
				log.Printf("[gateway] failed to load journal: %v", err)
			}
			fmt.Printf("  %q\n", content)
		case "/streak":
			streak, err := gw.GetAffirmationStreak(ctx, user)
			if err != nil {
				log.Printf("[gateway] failed to load streak: %v", err)
			}
			fmt.Printf("  streak: %d\n", streak)
		default:
			fmt.Printf("! unknown command %s\n", fields[0])
		}
	}
}

func printEvent(w io.Writer, evt conversation.Event) {
	if evt.Type == conversation.EventLaunch {
		fmt.Fprintf(w, "  >> opening %s\n", evt.Tool)
		return
	}

	msg := evt.Message
	if msg == nil || msg.Sender == chatmodel.SenderUser {
		return
	}

	switch {
	case msg.Card != nil:
		fmt.Fprintf(w, "[%d] %s\n", msg.ID, msg.Card.Headline)
		for _, h := range msg.Card.Helplines {
			fmt.Fprintf(w, "      %s: %s\n", h.Name, h.Number)
		}
		for _, a := range msg.Card.Actions {
			fmt.Fprintf(w, "      /tap %d %s  (%s)\n", msg.ID, a.ID, a.Label)
		}
	case msg.Clickable():
		fmt.Fprintf(w, "[%d] %s  (/tap %d)\n", msg.ID, msg.Text, msg.ID)
	default:
		fmt.Fprintf(w, "mitra: %s\n", msg.Text)
		if len(msg.QuickActions) > 0 {
			fmt.Fprintf(w, "       try: %s\n", strings.Join(msg.QuickActions, ", "))
		}
	}
}
