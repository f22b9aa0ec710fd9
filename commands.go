package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chxlky/lichtrinh/api"
	"github.com/chxlky/lichtrinh/internal/assistant"
	"github.com/chxlky/lichtrinh/internal/export"
	"github.com/chxlky/lichtrinh/internal/reminder"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the reminder scheduler",
		Action: func(c *cli.Context) error {
			rt, err := setup(c, "stdout")
			if err != nil {
				return err
			}
			defer rt.close()
			return serve(c.Context, rt)
		},
	}
}

func serve(parent context.Context, rt *runtime) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	scheduler, err := rt.newScheduler()
	if err != nil {
		return err
	}
	scheduler.Start(ctx)

	router := gin.New()
	router.Use(ginzap.Ginzap(rt.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(rt.logger, true))

	apiHandler := &api.Handler{
		Assistant: rt.assistant,
		Service:   rt.service,
		Scanner:   rt.scanner,
		Inbox:     rt.inbox,
		Location:  rt.loc,
	}
	apiHandler.RegisterRoutes(router.Group("/api"))

	srv := &http.Server{
		Addr:    ":" + rt.cfg.Server.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	zap.L().Info("Starting server", zap.String("port", rt.cfg.Server.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	reason, stopSignals := waitForShutdown(ctx, serverErr)
	defer stopSignals()
	zap.L().Info("Shutdown initiated", zap.String("reason", reason))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	zap.L().Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Error shutting down server", zap.Error(err))
	} else {
		zap.L().Info("HTTP server shut down gracefully.")
	}

	scheduler.Stop()
	zap.L().Info("Reminder scheduler stopped.")

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	default:
		return nil
	}
}

// waitForShutdown blocks until a signal arrives, ctx ends or errs yields.
// Until stop is called a second signal exits the process immediately;
// stop releases the signal handler.
func waitForShutdown(ctx context.Context, errs chan error) (reason string, stop func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var wg sync.WaitGroup
	var once sync.Once
	stop = func() {
		once.Do(func() { close(done) })
		wg.Wait()
	}

	reasonCh := make(chan string, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			reasonCh <- sig.String()
		case <-ctx.Done():
			reasonCh <- "context cancelled"
			return
		case <-done:
			return
		}

		// if a second signal is caught, exit immediately
		select {
		case <-sigCh:
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		case <-done:
		}
	}()

	select {
	case r := <-reasonCh:
		return r, stop
	case err := <-errs:
		errs <- err
		return "server error", stop
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "run one sentence through the assistant",
		ArgsUsage: "<text>",
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(text) == "" {
				return cli.Exit("nothing to ask", 2)
			}
			rt, err := setup(c, "stderr")
			if err != nil {
				return err
			}
			defer rt.close()
			return answer(c.Context, rt.assistant, c.App.Writer, text)
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "talk to the assistant interactively; reminders print as they fire",
		Action: func(c *cli.Context) error {
			out := &lockedWriter{w: c.App.Writer}
			printer := reminder.NotifierFunc(func(_ context.Context, n reminder.Notification) error {
				_, err := fmt.Fprintf(out, "\n🔔 %s\n> ", n.Message)
				return err
			})

			rt, err := setup(c, "stderr", printer)
			if err != nil {
				return err
			}
			defer rt.close()

			scheduler, err := rt.newScheduler()
			if err != nil {
				return err
			}
			scheduler.Start(c.Context)
			defer scheduler.Stop()

			fmt.Fprintln(out, "Trợ lý lịch trình. Gõ \"thoát\" để kết thúc.")
			in := bufio.NewScanner(c.App.Reader)
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					break
				}
				line := strings.TrimSpace(in.Text())
				if line == "" {
					continue
				}
				if line == "thoát" || line == "exit" || line == "quit" {
					break
				}
				if err := answer(c.Context, rt.assistant, out, line); err != nil {
					zap.L().Error("Failed to handle input", zap.Error(err))
				}
			}
			return in.Err()
		},
	}
}

// answer prints the assistant's reply as one write. Misses and empty input
// are answers, not failures.
func answer(ctx context.Context, asst *assistant.Assistant, out io.Writer, text string) error {
	reply, err := asst.Handle(ctx, text)
	msg := reply.Message
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		return nil
	case errors.Is(err, assistant.ErrNoMatch):
		err = nil
	case err != nil:
		msg = "Đã có lỗi xảy ra, vui lòng thử lại."
	}
	fmt.Fprintln(out, msg)
	return err
}

// lockedWriter serializes writes so reminders printed by the scheduler do
// not interleave with replies.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write every event as JSON or iCalendar",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "json or ics"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (defaults to stdout)"},
		},
		Action: func(c *cli.Context) error {
			format := strings.ToLower(c.String("format"))
			if format != "json" && format != "ics" {
				return cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
			}
			rt, err := setup(c, "stderr")
			if err != nil {
				return err
			}
			defer rt.close()

			events, err := rt.store.ListAll(c.Context)
			if err != nil {
				return err
			}

			var data []byte
			if format == "json" {
				if data, err = export.JSON(events); err != nil {
					return err
				}
			} else {
				data = []byte(export.ICS(events, rt.loc, rt.now()))
			}

			path := c.String("out")
			if path == "" {
				_, err = c.App.Writer.Write(data)
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			zap.L().Info("Export written", zap.String("path", path), zap.String("format", format), zap.Int("events", len(events)))
			return nil
		},
	}
}

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "run the reminder scanner without the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "scan once and exit"},
		},
		Action: func(c *cli.Context) error {
			out := c.App.Writer
			printer := reminder.NotifierFunc(func(_ context.Context, n reminder.Notification) error {
				_, err := fmt.Fprintln(out, n.Message)
				return err
			})

			rt, err := setup(c, "stderr", printer)
			if err != nil {
				return err
			}
			defer rt.close()

			if c.Bool("once") {
				_, err := rt.scanner.Scan(c.Context, rt.now())
				return err
			}

			scheduler, err := rt.newScheduler()
			if err != nil {
				return err
			}
			scheduler.Start(c.Context)
			reason, stopSignals := waitForShutdown(c.Context, make(chan error))
			defer stopSignals()
			zap.L().Info("Shutdown initiated", zap.String("reason", reason))
			scheduler.Stop()
			return nil
		},
	}
}
