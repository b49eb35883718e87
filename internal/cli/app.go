package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"laptopkita/internal/catalogsync"
	"laptopkita/internal/identity"
	"laptopkita/internal/logging"
	"laptopkita/internal/photo"
	"laptopkita/internal/session"
)

const (
	msgNotLoggedIn     = "You are not logged in."
	msgLoginFirst      = "Please login before making any uploads."
	msgFillAllFields   = "Please fill in all fields."
	msgEmptyState      = "Upload to see content."
	msgUploading       = "Uploading..."
	msgSuccess         = "Success!"
	msgNoImageSelected = "No image selected."
)

type SessionStore interface {
	CurrentSession(ctx context.Context) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	DisplayMode(ctx context.Context) (bool, error)
	SetDisplayMode(ctx context.Context, showList bool) error
}

type SignIn interface {
	SignIn(ctx context.Context, prompt identity.Prompt) (session.Session, error)
}

// App is the command-line presentation layer. SignIn is nil when Google
// sign-in is not configured.
type App struct {
	Controller *catalogsync.Controller
	Sessions   SessionStore
	Images     ImageLinker
	SignIn     SignIn
	Log        *logging.Logger

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

var errUsage = errors.New("usage")

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage()
		return 2
	}
	cmds := map[string]func(context.Context, []string) error{
		"list":      a.list,
		"watch":     a.watch,
		"upload":    a.upload,
		"delete":    a.delete,
		"share":     a.share,
		"login":     a.login,
		"logout":    a.logout,
		"whoami":    a.whoami,
		"layout":    a.layout,
		"image-url": a.imageURL,
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(a.Err, "unknown command %q\n", args[0])
		a.usage()
		return 2
	}
	if err := cmd(ctx, args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		if a.Log != nil {
			a.Log.WithField("command", args[0]).WithError(err).Debugf("command failed")
		}
		return 1
	}
	return 0
}

func (a *App) usage() {
	fmt.Fprintln(a.Err, `usage: laptopkita <command> [flags]

commands:
  list [--search TEXT] [--layout list|grid]
  watch
  upload --title T --brand B --price P --image FILE [--square]
  delete --id N [--yes]
  share --id N
  login [--id-token TOKEN]
  logout
  whoami
  layout [list|grid|toggle]
  image-url IMAGE_ID`)
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Err)
	return fs
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	search := fs.String("search", "", "filter by title or brand")
	layout := fs.String("layout", "", "list or grid (defaults to the saved layout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := a.Sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if !sess.SignedIn() {
		fmt.Fprintln(a.Out, msgNotLoggedIn)
		return nil
	}

	_ = a.Controller.Load(ctx, sess.Email)
	showList, err := a.showList(ctx, *layout)
	if err != nil {
		return err
	}
	st := a.Controller.Snapshot()
	if err := a.render(st, showList, *search); err != nil {
		return err
	}
	if st.Status == catalogsync.StatusFailed && st.NonToastError != nil && st.NonToastError.Reason != catalogsync.ReasonNoData {
		return errors.New(st.NonToastError.Message)
	}
	return nil
}

// watch re-renders on every state change until ctx is cancelled.
func (a *App) watch(ctx context.Context, args []string) error {
	fs := a.flags("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	updates, stop := a.Controller.Subscribe()
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- a.Controller.Run(ctx) }()

	for {
		select {
		case err := <-errc:
			return err
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if st.Status == catalogsync.StatusLoading {
				continue
			}
			sess, err := a.Sessions.CurrentSession(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			fmt.Fprintln(a.Out, strings.Repeat("-", 40))
			if !sess.SignedIn() {
				fmt.Fprintln(a.Out, msgNotLoggedIn)
				continue
			}
			showList, err := a.showList(ctx, "")
			if err != nil {
				return err
			}
			if err := a.render(st, showList, ""); err != nil {
				return err
			}
		}
	}
}

func (a *App) render(st catalogsync.State, showList bool, search string) error {
	if st.Status == catalogsync.StatusFailed && st.NonToastError != nil {
		if st.NonToastError.Reason == catalogsync.ReasonNoData {
			fmt.Fprintln(a.Out, msgEmptyState)
			return nil
		}
		fmt.Fprintln(a.Out, st.NonToastError.Message)
		fmt.Fprintln(a.Out, "Try again with: laptopkita list")
		return nil
	}
	fmt.Fprintln(a.Out, "Your Laptop")
	items := Filter(st.Items, search)
	if showList {
		return renderList(a.Out, items, a.Images)
	}
	return renderGrid(a.Out, items)
}

func (a *App) showList(ctx context.Context, override string) (bool, error) {
	switch override {
	case "list":
		return true, nil
	case "grid":
		return false, nil
	case "":
		return a.Sessions.DisplayMode(ctx)
	default:
		fmt.Fprintf(a.Err, "unknown layout %q\n", override)
		return false, errUsage
	}
}

func (a *App) upload(ctx context.Context, args []string) error {
	fs := a.flags("upload")
	title := fs.String("title", "", "laptop title")
	brand := fs.String("brand", "", "laptop brand")
	price := fs.String("price", "", "price in rupiah")
	imagePath := fs.String("image", "", "path to the photo")
	square := fs.Bool("square", false, "crop the photo to a centred square")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := a.Sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if !sess.SignedIn() {
		fmt.Fprintln(a.Out, msgLoginFirst)
		return errUsage
	}
	if strings.TrimSpace(*title) == "" || strings.TrimSpace(*brand) == "" || strings.TrimSpace(*price) == "" {
		fmt.Fprintln(a.Out, msgFillAllFields)
		return errUsage
	}

	var capture photo.Capture = photo.FileCapture{Path: *imagePath, Square: *square}
	raw, ok, err := capture.Capture(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.Out, msgNoImageSelected)
		return nil
	}

	fmt.Fprintln(a.Out, msgUploading)
	err = a.Controller.Upload(ctx, catalogsync.UploadInput{
		Email: sess.Email,
		Title: strings.TrimSpace(*title),
		Brand: strings.TrimSpace(*brand),
		Price: strings.TrimSpace(*price),
		Image: raw,
	})
	a.showSignals()
	return err
}

func (a *App) delete(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	id := fs.Int64("id", 0, "laptop id")
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		fmt.Fprintln(a.Err, "delete requires --id")
		return errUsage
	}
	sess, err := a.Sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if !sess.SignedIn() {
		fmt.Fprintln(a.Out, msgNotLoggedIn)
		return errUsage
	}
	if !*yes && !a.confirm(fmt.Sprintf("Delete laptop %d? [y/N] ", *id)) {
		fmt.Fprintln(a.Out, "Cancelled.")
		return nil
	}
	err = a.Controller.Delete(ctx, sess.Email, *id)
	a.showSignals()
	return err
}

// share prints a ready-to-send description of one of the user's laptops.
func (a *App) share(ctx context.Context, args []string) error {
	fs := a.flags("share")
	id := fs.Int64("id", 0, "laptop id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		fmt.Fprintln(a.Err, "share requires --id")
		return errUsage
	}
	sess, err := a.Sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if !sess.SignedIn() {
		fmt.Fprintln(a.Out, msgNotLoggedIn)
		return errUsage
	}
	_ = a.Controller.Load(ctx, sess.Email)
	for _, it := range a.Controller.Snapshot().Items {
		if it.ID == *id {
			fmt.Fprintln(a.Out, shareMessage(it, a.Images))
			return nil
		}
	}
	fmt.Fprintf(a.Out, "Laptop %d not found.\n", *id)
	return fmt.Errorf("laptop %d not found", *id)
}

// showSignals prints the pending toast once and consumes it.
func (a *App) showSignals() {
	st := a.Controller.Snapshot()
	switch {
	case st.LastError != nil:
		fmt.Fprintln(a.Out, st.LastError.Message)
	case st.Success:
		fmt.Fprintln(a.Out, msgSuccess)
	}
	a.Controller.ClearSignals()
}

func (a *App) confirm(prompt string) bool {
	fmt.Fprint(a.Out, prompt)
	line, _ := bufio.NewReader(a.In).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	idToken := fs.String("id-token", "", "Google ID token to import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var (
		sess session.Session
		err  error
	)
	switch {
	case *idToken != "":
		sess, err = identity.SessionFromIDToken(*idToken)
	case a.SignIn != nil:
		sess, err = a.SignIn.SignIn(ctx, func(code, url string) {
			fmt.Fprintf(a.Out, "Open %s and enter code %s\n", url, code)
		})
	default:
		fmt.Fprintln(a.Err, "Google sign-in is not configured; set GOOGLE_CLIENT_ID or pass --id-token")
		return errUsage
	}
	if err != nil {
		fmt.Fprintf(a.Err, "sign-in failed: %v\n", err)
		return err
	}
	if err := a.Sessions.Save(ctx, sess); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Signed in as %s\n", describe(sess))
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	if err := a.Sessions.Save(ctx, session.Session{}); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Signed out.")
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	sess, err := a.Sessions.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if !sess.SignedIn() {
		fmt.Fprintln(a.Out, msgNotLoggedIn)
		return nil
	}
	fmt.Fprintln(a.Out, describe(sess))
	return nil
}

func (a *App) layout(ctx context.Context, args []string) error {
	current, err := a.Sessions.DisplayMode(ctx)
	if err != nil {
		return err
	}
	next := current
	if len(args) > 0 {
		switch args[0] {
		case "list":
			next = true
		case "grid":
			next = false
		case "toggle":
			next = !current
		default:
			fmt.Fprintf(a.Err, "unknown layout %q\n", args[0])
			return errUsage
		}
		if next != current {
			if err := a.Sessions.SetDisplayMode(ctx, next); err != nil {
				return err
			}
		}
	}
	if next {
		fmt.Fprintln(a.Out, "list")
	} else {
		fmt.Fprintln(a.Out, "grid")
	}
	return nil
}

func (a *App) imageURL(_ context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(a.Err, "image-url requires an image id")
		return errUsage
	}
	fmt.Fprintln(a.Out, a.Images.ImageURL(args[0]))
	return nil
}

func describe(s session.Session) string {
	if s.Name == "" {
		return s.Email
	}
	return s.Name + " <" + s.Email + ">"
}
