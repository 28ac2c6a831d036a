package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchlink/cli/render"
	"github.com/pithecene-io/benchlink/link"
	"github.com/pithecene-io/benchlink/types"
)

// PortsResponse lists the serial ports visible to the host.
type PortsResponse struct {
	Ports []string `json:"ports"`
}

// FrameResponse describes the transfer frame for one mode.
type FrameResponse struct {
	Mode       string `json:"mode"`
	Code       int    `json:"code"`
	Known      bool   `json:"known"`
	Header     string `json:"header"`
	Channels   int    `json:"channels"`
	PayloadLen int    `json:"payload_len"`
}

// DebugCommand returns the debug command with subcommands.
// Debug commands are diagnostic tools; none of them write to a device.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (ports, frame)",
		Subcommands: []*cli.Command{
			debugPortsCommand(),
			debugFrameCommand(),
		},
	}
}

func debugPortsCommand() *cli.Command {
	return &cli.Command{
		Name:   "ports",
		Usage:  "List serial ports",
		Flags:  ReadOnlyFlags(),
		Action: debugPortsAction,
	}
}

func debugPortsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}

	ports, err := link.ListPorts()
	if err != nil {
		return err
	}
	if ports == nil {
		ports = []string{}
	}
	return r.Render(PortsResponse{Ports: ports})
}

func debugFrameCommand() *cli.Command {
	return &cli.Command{
		Name:      "frame",
		Usage:     "Show the header and payload size for a transform mode",
		ArgsUsage: "<mode>",
		Flags:     ReadOnlyFlags(),
		Action:    debugFrameAction,
	}
}

func debugFrameAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("mode required", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}

	mode, err := types.ParseMode(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(describeFrame(mode))
}

func describeFrame(m types.Mode) FrameResponse {
	header := link.EncodeHeader(m)
	return FrameResponse{
		Mode:       m.String(),
		Code:       int(m),
		Known:      m.Known(),
		Header:     fmt.Sprintf("0x%s", hex.EncodeToString(header[:])),
		Channels:   m.Channels(),
		PayloadLen: m.PayloadLen(),
	}
}
