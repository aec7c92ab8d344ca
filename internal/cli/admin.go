package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/508dev/interview-service/internal/config"
	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/508dev/interview-service/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// passwordEnv lets scripts pass passwords without exposing them in argv.
const passwordEnv = "INTERVIEWS_ADMIN_PASSWORD"

type interviewerOptions struct {
	username     string
	email        string
	firstName    string
	lastName     string
	password     string
	bio          string
	companies    string
	calEventType string
	rate         string
	inactive     bool
}

func newCreateInterviewerCmd() *cobra.Command {
	opts := &interviewerOptions{}
	cmd := &cobra.Command{
		Use:   "create-interviewer",
		Short: "Create a login and an interviewer profile",
		Example: `  interview-service create-interviewer --username jane --email jane@508.dev \
    --first-name Jane --last-name Doe --cal-event-type jane/60min --rate 150`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.password == "" {
				opts.password = os.Getenv(passwordEnv)
			}
			return withDatabase(func(ctx context.Context, cfg config.Application, db *pgxpool.Pool) error {
				users := user.NewUserService(user.NewUserRepo(db))
				interviewers := interviewer.NewService(interviewer.NewRepository(db), nil)
				i, err := createInterviewer(ctx, users, interviewers, opts)
				if err != nil {
					return err
				}
				cmd.Printf("Created interviewer %d (%s) for user %s\n", i.Id, i.DisplayName(), opts.username)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.username, "username", "", "login name")
	f.StringVar(&opts.email, "email", "", "email address for booking notifications")
	f.StringVar(&opts.firstName, "first-name", "", "first name")
	f.StringVar(&opts.lastName, "last-name", "", "last name")
	f.StringVar(&opts.password, "password", "", "password (defaults to $"+passwordEnv+")")
	f.StringVar(&opts.bio, "bio", "", "profile bio")
	f.StringVar(&opts.companies, "companies", "", "comma separated list of companies")
	f.StringVar(&opts.calEventType, "cal-event-type", "", "Cal.com event type link, e.g. jane/60min")
	f.StringVar(&opts.rate, "rate", "0", "hourly rate in USD, e.g. 150.00")
	f.BoolVar(&opts.inactive, "inactive", false, "hide the profile from the catalog")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("cal-event-type")
	return cmd
}

func createInterviewer(ctx context.Context, users user.Service, interviewers interviewer.Service, opts *interviewerOptions) (interviewer.Interviewer, error) {
	if opts.password == "" {
		return interviewer.Interviewer{}, fmt.Errorf("a password is required, use --password or $%s", passwordEnv)
	}
	rate, err := interviewer.ParseRate(opts.rate)
	if err != nil {
		return interviewer.Interviewer{}, fmt.Errorf("invalid --rate %q: %w", opts.rate, err)
	}

	u, err := users.CreateUser(ctx, user.User{
		Username:  opts.username,
		Email:     opts.email,
		FirstName: opts.firstName,
		LastName:  opts.lastName,
	}, opts.password)
	if err != nil {
		return interviewer.Interviewer{}, err
	}

	i, err := interviewers.CreateInterviewer(ctx, interviewer.Interviewer{
		UserId:          u.Id,
		Bio:             opts.bio,
		Companies:       opts.companies,
		CalEventTypeId:  opts.calEventType,
		HourlyRateCents: rate,
		IsActive:        !opts.inactive,
	})
	if err != nil {
		if delErr := users.DeleteUser(ctx, u.Id); delErr != nil {
			log.Errorf("failed to remove user %s after interviewer creation failed: %v", u.Username, delErr)
		}
		return interviewer.Interviewer{}, err
	}
	return i, nil
}

var tagSlug string

var createTagCmd = &cobra.Command{
	Use:     "create-tag (technology|subject) NAME",
	Short:   "Add a technology or interview subject to filter by",
	Example: `  interview-service create-tag technology "C++"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseTagKind(args[0])
		if err != nil {
			return err
		}
		return withDatabase(func(ctx context.Context, cfg config.Application, db *pgxpool.Pool) error {
			service := interviewer.NewService(interviewer.NewRepository(db), nil)
			tag, err := service.CreateTag(ctx, kind, args[1], tagSlug)
			if err != nil {
				return err
			}
			cmd.Printf("Created %s %q with slug %q\n", kind, tag.Name, tag.Slug)
			return nil
		})
	},
}

func init() {
	createTagCmd.Flags().StringVar(&tagSlug, "slug", "", "URL slug, derived from the name when empty")
}

func parseTagKind(value string) (interviewer.TagKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "technology", "tech":
		return interviewer.TechnologyTag, nil
	case "subject", "type":
		return interviewer.SubjectTag, nil
	default:
		return 0, fmt.Errorf("unknown tag kind %q, expected technology or subject", value)
	}
}

var setPasswordCmd = &cobra.Command{
	Use:   "set-password USERNAME",
	Short: "Set a user's password from $" + passwordEnv,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv(passwordEnv)
		if password == "" {
			return fmt.Errorf("$%s is empty", passwordEnv)
		}
		return withDatabase(func(ctx context.Context, cfg config.Application, db *pgxpool.Pool) error {
			repo := user.NewUserRepo(db)
			u, err := repo.GetUserByUsername(ctx, args[0])
			if errors.Is(err, user.ErrUserNotFound) {
				return fmt.Errorf("no user named %q", args[0])
			}
			if err != nil {
				return err
			}
			if err := user.NewUserService(repo).SetPassword(ctx, u.Id, password); err != nil {
				return err
			}
			cmd.Printf("Password updated for %s\n", u.Username)
			return nil
		})
	},
}
