package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/permission"
	"github.com/sharetube/syncwatch/internal/reconcile"
)

var ErrUnknownCommand = errors.New("unknown command, type help")

// sessionCommands is what the console drives. Implemented by
// *reconcile.Engine.
type sessionCommands interface {
	Snapshot(ctx context.Context) (*domain.Room, error)
	AddVideo(ctx context.Context, videoURL string) error
	ImportPlaylist(ctx context.Context, playlistURL string) error
	RemoveVideo(ctx context.Context, videoID string) error
	MoveVideo(ctx context.Context, videoID string, newPos int) error
	PlayVideo(ctx context.Context, index int) error
	Skip(ctx context.Context) error
	TogglePlayPause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume int) error
	Kick(ctx context.Context, userID string) error
	UpdateSettings(ctx context.Context, s reconcile.Settings) error
	Leave(ctx context.Context) error
	DeleteRoom(ctx context.Context) error
}

type console struct {
	session sessionCommands
	in      io.Reader
	out     io.Writer
}

func newConsole(session sessionCommands, in io.Reader, out io.Writer) *console {
	return &console{session: session, in: in, out: out}
}

const helpText = `commands:
  status                   show the room
  add <url>                add a video
  import <url>             add the videos of a playlist
  remove <video-id>        remove a video
  move <video-id> <pos>    move a video
  play <index>             play the video at index
  skip                     play the next video
  toggle                   play or pause
  seek <seconds>           seek the current video
  volume <0-100>           set the local volume
  kick <user-id>           remove a participant
  password [new]           set or clear the room password
  perm <action> on|off     grant or revoke an action
  transfer <user-id>       hand over leadership
  leave                    leave the room
  delete                   delete the room
`

// run executes lines until the input ends, the session stops or ctx is done.
// run executes input lines until the input ends, the session stops or ctx
// is done. A closable input is closed on return so its reader does not
// outlive the session.
func (c *console) run(ctx context.Context) {
	if closer, ok := c.in.(io.Closer); ok {
		defer closer.Close()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			err := c.exec(ctx, line)
			if reconcile.IsStopped(err) {
				return
			}
			if err != nil {
				fmt.Fprintf(c.out, "error: %s\n", err)
			}
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		_, err := io.WriteString(c.out, helpText)
		return err
	case "status":
		return c.status(ctx)
	case "add":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		return c.session.AddVideo(ctx, args[0])
	case "import":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		return c.session.ImportPlaylist(ctx, args[0])
	case "remove":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		return c.session.RemoveVideo(ctx, args[0])
	case "move":
		if err := wantArgs(args, 2); err != nil {
			return err
		}
		pos, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid position %q", args[1])
		}
		return c.session.MoveVideo(ctx, args[0], pos)
	case "play":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}
		return c.session.PlayVideo(ctx, index)
	case "skip", "next":
		return c.session.Skip(ctx)
	case "toggle":
		return c.session.TogglePlayPause(ctx)
	case "seek":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		seconds, err := strconv.ParseFloat(args[0], 64)
		if err != nil || seconds < 0 {
			return fmt.Errorf("invalid position %q", args[0])
		}
		return c.session.Seek(ctx, seconds)
	case "volume":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		volume, err := strconv.Atoi(args[0])
		if err != nil || volume < 0 || volume > 100 {
			return fmt.Errorf("volume must be between 0 and 100")
		}
		return c.session.SetVolume(ctx, volume)
	case "kick":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		return c.session.Kick(ctx, args[0])
	case "password":
		password := strings.Join(args, " ")
		return c.session.UpdateSettings(ctx, reconcile.Settings{Password: &password})
	case "perm":
		return c.setPermission(ctx, args)
	case "transfer":
		if err := wantArgs(args, 1); err != nil {
			return err
		}
		return c.session.UpdateSettings(ctx, reconcile.Settings{TransferTo: args[0]})
	case "leave":
		return c.session.Leave(ctx)
	case "delete":
		return c.session.DeleteRoom(ctx)
	}

	return ErrUnknownCommand
}

func wantArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func (c *console) setPermission(ctx context.Context, args []string) error {
	if err := wantArgs(args, 2); err != nil {
		return err
	}
	action, err := permission.Parse(args[0])
	if err != nil {
		return err
	}
	var value bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "yes":
		value = true
	case "off", "false", "no":
	default:
		return fmt.Errorf("expected on or off, got %q", args[1])
	}

	rm, err := c.session.Snapshot(ctx)
	if err != nil {
		return err
	}
	perms := domain.DefaultPermissions()
	if rm.Permissions != nil {
		perms = *rm.Permissions
	}
	perms = permission.Set(perms, action, value)
	return c.session.UpdateSettings(ctx, reconcile.Settings{Permissions: &perms})
}

func (c *console) status(ctx context.Context) error {
	rm, err := c.session.Snapshot(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "room\t%s (%s)\n", rm.Name, rm.ID)
	fmt.Fprintf(w, "leader\t%s\n", rm.LeaderUsername)
	fmt.Fprintf(w, "state\t%s\n", rm.VideoState)
	for _, p := range rm.Participants {
		fmt.Fprintf(w, "member\t%s\t%s\n", p.Username, p.ID)
	}
	for i, v := range rm.Playlist {
		marker := " "
		if i == rm.CurrentVideoIndex {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %d\t%s\t%s\n", marker, i, v.ID, v.Title)
	}
	if rm.Permissions != nil {
		for _, action := range permission.Actions() {
			fmt.Fprintf(w, "perm\t%s\t%t\n", action, permission.Granted(*rm.Permissions, action))
		}
	}
	return w.Flush()
}
