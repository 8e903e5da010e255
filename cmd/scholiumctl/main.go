package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xuanlam2007/scholium/internal/app"
	"github.com/xuanlam2007/scholium/internal/client"
	"github.com/xuanlam2007/scholium/internal/controller/middleware"
	"github.com/xuanlam2007/scholium/internal/guard"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/session"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

const ScholiumCtlVersion = "0.1.0"

var Out = log.New(os.Stdout, "", 0)
var Err = log.New(os.Stderr, "", log.Ldate|log.Ltime)

func main() {
	usage := `Scholium control.

The default api url is http://localhost:8080.

Usage:
    scholiumctl token --secret=<secret> [--user=<user_id>] [--ttl=<ttl>]
    scholiumctl watch <scholium_id> --token=<token> [--api_url=<api_url>] [--poll_interval=<interval>]
    scholiumctl slots list <scholium_id> --token=<token> [--api_url=<api_url>]
    scholiumctl slots add <scholium_id> --token=<token> [--api_url=<api_url>]
    scholiumctl slots remove <scholium_id> <index> --token=<token> [--api_url=<api_url>]
    scholiumctl slots edit <scholium_id> <index> (start|end) <value> --token=<token> [--api_url=<api_url>]
    scholiumctl members list <scholium_id> --token=<token> [--api_url=<api_url>]
    scholiumctl members cohost <scholium_id> <member_id> --token=<token> [--api_url=<api_url>]
    scholiumctl broadcast <scholium_id> <kind> --token=<token> [--api_url=<api_url>]

Options:
    -h --help                    Show this screen.
    --version                    Show version.
    --secret=<secret>            JWT_SECRET of the server.
    --user=<user_id>             User uuid, random when omitted.
    --ttl=<ttl>                  Token lifetime [default: 24h].
    --token=<token>              Bearer token issued by "scholiumctl token".
    --api_url=<api_url>          [default: http://localhost:8080]
    --poll_interval=<interval>   Polling interval after the stream gives up [default: 3000ms].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ScholiumCtlVersion)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if token_, _ := opts.Bool("token"); token_ {
		err = issueToken(opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		err = watch(ctx, opts)
	} else if slots_, _ := opts.Bool("slots"); slots_ {
		err = slots(ctx, opts)
	} else if members_, _ := opts.Bool("members"); members_ {
		err = members(ctx, opts)
	} else if broadcast_, _ := opts.Bool("broadcast"); broadcast_ {
		err = broadcast(ctx, opts)
	}
	if err != nil {
		Err.Printf("%s", err)
		os.Exit(1)
	}
}

func issueToken(opts docopt.Opts) error {
	secret, _ := opts.String("--secret")
	ttlStr, _ := opts.String("--ttl")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return fmt.Errorf("parse ttl: %w", err)
	}

	userID := uuid.New()
	if userStr, _ := opts.String("--user"); userStr != "" {
		if userID, err = uuid.Parse(userStr); err != nil {
			return fmt.Errorf("parse user: %w", err)
		}
	}

	tok, err := middleware.IssueToken([]byte(secret), userID, ttl)
	if err != nil {
		return err
	}
	Out.Printf("user_id: %s", userID)
	Out.Printf("%s", tok)
	return nil
}

func apiClient(opts docopt.Opts) (*client.APIClient, string) {
	apiURL, _ := opts.String("--api_url")
	tok, _ := opts.String("--token")
	return client.NewAPIClient(apiURL, tok, nil), tok
}

func scholiumID(opts docopt.Opts) (int64, error) {
	raw, _ := opts.String("<scholium_id>")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scholium id %q", raw)
	}
	return id, nil
}

// subject читает sub без проверки подписи, только для логов сессии
func subject(tok string) uuid.UUID {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ============ watch ============

func watch(ctx context.Context, opts docopt.Opts) error {
	api, tok := apiClient(opts)
	id, err := scholiumID(opts)
	if err != nil {
		return err
	}
	intervalStr, _ := opts.String("--poll_interval")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return fmt.Errorf("parse poll interval: %w", err)
	}

	logger := app.NewCLILogger("warn")
	defer logger.Sync()

	source := client.NewStreamSource(api, logger, client.WithPollInterval(interval))
	evicted := make(chan guard.Reason, 1)

	s := session.New(session.Options{
		ScholiumID: id,
		UserID:     subject(tok),
		Source:     source,
		Checker:    api,
		OnRefresh: func(ctx context.Context, kinds []model.ChangeKind) {
			Out.Printf("%s refresh %v", time.Now().Format(time.TimeOnly), kinds)
			for _, kind := range kinds {
				if kind == model.ChangeTimeSlots || kind == model.ChangeRefresh {
					printSlots(ctx, api, id)
					break
				}
			}
		},
		OnEvict: func(reason guard.Reason) {
			evicted <- reason
		},
		Logger: logger,
	})
	if err := s.Mount(ctx); err != nil {
		return err
	}
	defer s.Unmount()
	Out.Printf("watching scholium %d, ctrl-c to stop", id)

	select {
	case reason := <-evicted:
		return fmt.Errorf("evicted from scholium %d: %s", id, reason)
	case <-ctx.Done():
		return nil
	}
}

func printSlots(ctx context.Context, api *client.APIClient, id int64) {
	current, err := api.GetSlots(ctx, id)
	if err != nil {
		Err.Printf("get slots: %s", err)
		return
	}
	for i, slot := range current {
		Out.Printf("  %d. %s-%s", i+1, slot.Start, slot.End)
	}
}

// ============ slots ============

func slots(ctx context.Context, opts docopt.Opts) error {
	api, _ := apiClient(opts)
	id, err := scholiumID(opts)
	if err != nil {
		return err
	}

	editor := client.NewSlotEditor(api, id, nil)
	if err := editor.Reload(ctx); err != nil {
		return err
	}

	index := func() (int, error) {
		raw, _ := opts.String("<index>")
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid index %q, slots are numbered from 1", raw)
		}
		return n - 1, nil
	}

	if add_, _ := opts.Bool("add"); add_ {
		err = editor.Add(ctx)
	} else if remove_, _ := opts.Bool("remove"); remove_ {
		var i int
		if i, err = index(); err == nil {
			err = editor.Remove(ctx, i)
		}
	} else if edit_, _ := opts.Bool("edit"); edit_ {
		field := timeslot.FieldStart
		if end_, _ := opts.Bool("end"); end_ {
			field = timeslot.FieldEnd
		}
		value, _ := opts.String("<value>")
		var i int
		if i, err = index(); err == nil {
			err = editor.Edit(ctx, i, field, value)
		}
	}
	if err != nil {
		return err
	}

	for i, slot := range editor.Slots() {
		Out.Printf("%d. %s-%s", i+1, slot.Start, slot.End)
	}
	return nil
}

// ============ members ============

func members(ctx context.Context, opts docopt.Opts) error {
	api, _ := apiClient(opts)
	id, err := scholiumID(opts)
	if err != nil {
		return err
	}

	list, err := api.Members(ctx, id)
	if err != nil {
		return err
	}

	if cohost_, _ := opts.Bool("cohost"); cohost_ {
		raw, _ := opts.String("<member_id>")
		memberID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid member id %q", raw)
		}
		for _, m := range list {
			if m.ID != memberID {
				continue
			}
			toggle := client.NewPermissionToggle(api, m)
			if err := toggle.ToggleCohost(ctx); err != nil {
				return err
			}
			role := toggle.Role()
			Out.Printf("member %d cohost=%t add_homework=%t create_subject=%t",
				memberID, role.IsCohost, role.CanAddHomework, role.CanCreateSubject)
			return nil
		}
		return fmt.Errorf("member %d not found in scholium %d", memberID, id)
	}

	for _, m := range list {
		role := "member"
		switch {
		case m.IsHost:
			role = "host"
		case m.IsCohost:
			role = "cohost"
		}
		Out.Printf("%d\t%s\t%s\thomework=%t subjects=%t",
			m.ID, m.UserID, role, m.CanAddHomework, m.CanCreateSubject)
	}
	return nil
}

func broadcast(ctx context.Context, opts docopt.Opts) error {
	api, _ := apiClient(opts)
	id, err := scholiumID(opts)
	if err != nil {
		return err
	}
	kind, _ := opts.String("<kind>")
	if err := api.Broadcast(ctx, id, model.ChangeKind(kind)); err != nil {
		return err
	}
	Out.Printf("published %s to scholium %d", kind, id)
	return nil
}

var _ session.Source = (*client.StreamSource)(nil)
