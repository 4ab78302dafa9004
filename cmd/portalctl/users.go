package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/urfave/cli/v2"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
	"github.com/socis/member-portal/internal/infrastructure/db"
	rediscache "github.com/socis/member-portal/internal/infrastructure/db/redis"
	"github.com/socis/member-portal/internal/pkg/config"
	"github.com/socis/member-portal/pkg/logger"
)

var usersCommand = cli.Command{
	Name:  "users",
	Usage: "Inspects and provisions users directly on the store",
	Subcommands: []*cli.Command{
		&usersListCmd,
		&usersAddCmd,
		&usersGrantCmd,
		&usersRevokeCmd,
	},
}

var usersListCmd = cli.Command{
	Name:   "list",
	Usage:  "Lists users with their permissions and roles",
	Action: listUsers,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "search",
			Usage: "case-insensitive substring of name or email",
		},
	},
}

var usersAddCmd = cli.Command{
	Name:  "add",
	Usage: "Provisions a user, for development and bootstrap",
	UsageText: `portalctl users add \
     --email alice@example.com \
     --name Alice \
     --secret <token> \
     --permission ADMIN`,
	Action: addUser,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "user id, default: a random UUID"},
		&cli.StringFlag{Name: "email", Usage: "email address (mandatory)", Required: true},
		&cli.StringFlag{Name: "name", Usage: "display name (mandatory)", Required: true},
		&cli.StringFlag{Name: "secret", Usage: "access token the user authenticates with"},
		&cli.StringSliceFlag{Name: "permission", Usage: "permission to grant, repeatable"},
		&cli.StringSliceFlag{Name: "role", Usage: "role to assign, repeatable"},
	},
}

var usersGrantCmd = cli.Command{
	Name:      "grant",
	Usage:     "Grants a permission to a user",
	UsageText: "portalctl users grant --email alice@example.com --permission ADMIN",
	Action: func(c *cli.Context) error {
		return changePermission(c, true)
	},
	Flags: permissionFlags(),
}

var usersRevokeCmd = cli.Command{
	Name:      "revoke",
	Usage:     "Revokes a permission from a user",
	UsageText: "portalctl users revoke --email alice@example.com --permission EDIT_EVENT",
	Action: func(c *cli.Context) error {
		return changePermission(c, false)
	},
	Flags: permissionFlags(),
}

func permissionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "email", Usage: "email of the user (mandatory)", Required: true},
		&cli.StringFlag{Name: "permission", Usage: "ADMIN, CREATE_EVENT, EDIT_EVENT or DELETE_EVENT (mandatory)", Required: true},
	}
}

// session holds the store and the optional identity cache for one command.
type session struct {
	store db.UserStore
	cache *rediscache.IdentityCache
	close func()
}

func openSession(ctx context.Context) (*session, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	cfg, err := config.LoadWith(ctx, envconfig.OsLookuper())
	if err != nil {
		return nil, err
	}
	log := logger.Init(logger.Options{Level: "warn", Pretty: true, Output: os.Stderr})

	store, closeStore, err := db.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s := &session{store: store, close: func() { _ = closeStore(context.Background()) }}

	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			// The API falls back to the store after the TTL anyway.
			log.Warn().Err(err).Msg("identity cache unreachable, cached identities expire on their own")
		} else {
			s.cache = rediscache.NewIdentityCache(rdb, cfg.Redis.CacheTTL)
			storeClose := s.close
			s.close = func() {
				_ = rdb.Close()
				storeClose()
			}
		}
	}
	return s, nil
}

func listUsers(c *cli.Context) error {
	s, err := openSession(c.Context)
	if err != nil {
		return err
	}
	defer s.close()

	users, err := s.store.List(c.Context, ports.ListUsersFilter{Search: c.String("search")})
	if err != nil {
		return err
	}
	return printUsers(c.App.Writer, users)
}

func printUsers(out io.Writer, users []*domain.User) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPERMISSIONS\tROLES")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, joinSet(u.Permissions), joinSet(u.Roles))
	}
	return w.Flush()
}

func addUser(c *cli.Context) error {
	name, err := domain.ValidateName(c.String("name"))
	if err != nil {
		return err
	}
	perms, err := domain.NormalizePermissions(toPermissions(c.StringSlice("permission")))
	if err != nil {
		return err
	}
	roles, err := domain.NormalizeRoles(toRoles(c.StringSlice("role")))
	if err != nil {
		return err
	}

	id := c.String("id")
	if id == "" {
		id = uuid.NewString()
	}

	s, err := openSession(c.Context)
	if err != nil {
		return err
	}
	defer s.close()

	u := &domain.User{
		ID:          id,
		Secret:      c.String("secret"),
		Name:        name,
		Email:       strings.TrimSpace(c.String("email")),
		Image:       domain.DefaultImage,
		Permissions: perms,
		Roles:       roles,
	}
	if err := s.store.Insert(c.Context, u); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created user %s (%s)\n", u.ID, u.Email)
	return nil
}

func changePermission(c *cli.Context, grant bool) error {
	perm := domain.Permission(strings.ToUpper(strings.TrimSpace(c.String("permission"))))
	if !perm.IsValid() {
		return fmt.Errorf("unknown permission %q", c.String("permission"))
	}

	s, err := openSession(c.Context)
	if err != nil {
		return err
	}
	defer s.close()

	u, err := s.store.FindByEmail(c.Context, c.String("email"))
	if err != nil {
		return fmt.Errorf("%s: %w", c.String("email"), err)
	}

	perms := applyPermission(u.Permissions, perm, grant)
	if domain.SamePermissions(perms, u.Permissions) {
		fmt.Fprintf(c.App.Writer, "%s unchanged\n", u.Email)
		return nil
	}

	updated, err := s.store.UpdateByID(c.Context, u.ID, ports.UserPatch{Permissions: &perms})
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(c.Context, u.ID); err != nil {
			log := logger.Get()
			log.Warn().Err(err).Msg("failed to invalidate cached identity")
		}
	}
	fmt.Fprintf(c.App.Writer, "%s now has [%s]\n", updated.Email, joinSet(updated.Permissions))
	return nil
}

// applyPermission returns a new set with perm added or removed.
func applyPermission(current []domain.Permission, perm domain.Permission, grant bool) []domain.Permission {
	out := make([]domain.Permission, 0, len(current)+1)
	for _, p := range current {
		if p != perm {
			out = append(out, p)
		}
	}
	if grant {
		out = append(out, perm)
	}
	return out
}

func toPermissions(in []string) []domain.Permission {
	out := make([]domain.Permission, 0, len(in))
	for _, p := range in {
		out = append(out, domain.Permission(strings.ToUpper(strings.TrimSpace(p))))
	}
	return out
}

func toRoles(in []string) []domain.Role {
	out := make([]domain.Role, 0, len(in))
	for _, r := range in {
		out = append(out, domain.Role(strings.ToUpper(strings.TrimSpace(r))))
	}
	return out
}

func joinSet[T ~string](in []T) string {
	parts := make([]string, 0, len(in))
	for _, v := range in {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ",")
}
