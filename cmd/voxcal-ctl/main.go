package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"voxcal/internal/config"
	"voxcal/internal/ipc"
)

const usage = `usage: voxcal-ctl [flags] <command>

commands:
  trigger        listen on the microphone for one command
  say <text>     handle text as if it had been spoken
  play <file>    transcribe an audio file and handle it
`

func main() {
	socket := cli.StringP("socket", "s", config.DefaultSocket, "Daemon socket path")
	timeout := cli.DurationP("timeout", "t", 5*time.Minute, "How long to wait for the reply")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	msg, err := parse(cli.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cli.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := ipc.Send(ctx, *socket, msg)
	if err != nil {
		fmt.Println("voxcal-daemon:", err)
		os.Exit(1)
	}
	if reply.Response != "" {
		fmt.Println(reply.Response)
	}
}

func parse(args []string) (ipc.ControlMessage, error) {
	if len(args) == 0 {
		return ipc.ControlMessage{}, fmt.Errorf("missing command")
	}
	rest := strings.TrimSpace(strings.Join(args[1:], " "))
	switch args[0] {
	case ipc.CmdTrigger:
		return ipc.ControlMessage{Cmd: ipc.CmdTrigger}, nil
	case ipc.CmdSay:
		if rest == "" {
			return ipc.ControlMessage{}, fmt.Errorf("say needs some text")
		}
		return ipc.ControlMessage{Cmd: ipc.CmdSay, Text: rest}, nil
	case ipc.CmdPlay:
		if rest == "" {
			return ipc.ControlMessage{}, fmt.Errorf("play needs a file")
		}
		// The daemon may run in another directory.
		abs, err := filepath.Abs(rest)
		if err != nil {
			return ipc.ControlMessage{}, err
		}
		return ipc.ControlMessage{Cmd: ipc.CmdPlay, Path: abs}, nil
	}
	return ipc.ControlMessage{}, fmt.Errorf("unknown command %q", args[0])
}
