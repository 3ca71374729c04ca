package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/service"
	"github.com/murmurapp/murmur-server/internal/store"
)

// SeedReport summarizes what the seed command created.
type SeedReport struct {
	Users     int      `json:"users"`
	Skipped   int      `json:"skippedUsers"`
	Posts     int      `json:"posts"`
	Comments  int      `json:"comments"`
	Likes     int      `json:"likes"`
	Bookmarks int      `json:"bookmarks"`
	Shares    int      `json:"shares"`
	UserIDs   []string `json:"userIds"`
}

type seedOptions struct {
	users    int
	posts    int
	password string
	cost     int
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo users, posts and interactions",
		Long: `Create demo users with posts, then have every user comment on, like and
bookmark the posts of the next user. The first user also shares one post.

Users whose email already exists are skipped, so running seed twice adds
posts only for users created by the second run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.users < 1 {
				return fmt.Errorf("--users must be at least 1")
			}
			if opts.posts < 0 {
				return fmt.Errorf("--posts must not be negative")
			}

			return rootOpts.withContainer(cmd, func(i do.Injector) error {
				s := &seeder{
					store:        storeOf(i).RecordStore,
					posts:        do.MustInvoke[*service.PostService](i),
					comments:     do.MustInvoke[*service.CommentService](i),
					interactions: do.MustInvoke[*service.InteractionService](i),
					opts:         opts,
				}
				report, err := s.run(cmd.Context())
				if err != nil {
					return err
				}
				return printSeedReport(newFormatter(rootOpts, cmd.OutOrStdout()), report)
			})
		},
	}

	cmd.Flags().IntVar(&opts.users, "users", 5, "number of demo users")
	cmd.Flags().IntVar(&opts.posts, "posts", 3, "posts per demo user")
	cmd.Flags().StringVar(&opts.password, "password", "murmur123", "password for every demo user")
	cmd.Flags().IntVar(&opts.cost, "cost", bcrypt.DefaultCost, "bcrypt cost for password hashes")

	return cmd
}

type seeder struct {
	store        store.RecordStore
	posts        *service.PostService
	comments     *service.CommentService
	interactions *service.InteractionService
	opts         seedOptions
}

func (s *seeder) run(ctx context.Context) (*SeedReport, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.opts.password), s.opts.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	report := &SeedReport{}
	for n := 1; n <= s.opts.users; n++ {
		email := fmt.Sprintf("demo%d@murmur.local", n)
		if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
			report.Skipped++
			continue
		} else if !domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}

		user := &domain.User{
			Name:         fmt.Sprintf("Demo User %d", n),
			Email:        email,
			PasswordHash: string(hash),
			Bio:          fmt.Sprintf("Seeded account number %d.", n),
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create %s: %w", email, err)
		}
		report.UserIDs = append(report.UserIDs, user.ID)
		report.Users++
	}

	postsBy := make(map[string][]string, len(report.UserIDs))
	for _, userID := range report.UserIDs {
		for n := 1; n <= s.opts.posts; n++ {
			post, err := s.posts.Create(ctx, userID, service.PostInput{
				Title:   fmt.Sprintf("Post %d", n),
				Content: fmt.Sprintf("Demo post %d written by %s.", n, userID),
			})
			if err != nil {
				return nil, err
			}
			postsBy[userID] = append(postsBy[userID], post.ID)
			report.Posts++
		}
	}

	// Each user reacts to the posts of the next user in the ring.
	for idx, actorID := range report.UserIDs {
		if len(report.UserIDs) < 2 {
			break
		}
		target := report.UserIDs[(idx+1)%len(report.UserIDs)]
		for _, postID := range postsBy[target] {
			if _, err := s.comments.Create(ctx, actorID, postID, "Nice one!"); err != nil {
				return nil, err
			}
			report.Comments++
			if _, err := s.interactions.Like(ctx, actorID, postID); err != nil {
				return nil, err
			}
			report.Likes++
		}
		if first := postsBy[target]; len(first) > 0 {
			if _, err := s.interactions.Bookmark(ctx, actorID, first[0]); err != nil {
				return nil, err
			}
			report.Bookmarks++
		}
	}

	if len(report.UserIDs) > 1 {
		if posts := postsBy[report.UserIDs[1]]; len(posts) > 0 {
			if _, err := s.interactions.Share(ctx, report.UserIDs[0], posts[0]); err != nil {
				return nil, err
			}
			report.Shares++
		}
	}

	return report, nil
}

func printSeedReport(f *OutputFormatter, report *SeedReport) error {
	return f.Output(report, func(w io.Writer) error {
		l := &line{w: w}
		l.printf("Created %d users (%d already existed)", report.Users, report.Skipped)
		l.printf("  posts:      %d", report.Posts)
		l.printf("  comments:   %d", report.Comments)
		l.printf("  likes:      %d", report.Likes)
		l.printf("  bookmarks:  %d", report.Bookmarks)
		l.printf("  shares:     %d", report.Shares)
		return l.err
	})
}
