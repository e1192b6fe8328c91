package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getmockd/mockharness/pkg/config"
)

type initOptions struct {
	file        string
	protocol    string
	name        string
	address     string
	force       bool
	interactive bool
}

func newInitCmd() *cobra.Command {
	opts := &initOptions{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter scenario file",
		Long: `Write a starter scenario file for a protocol.

The file format follows the extension (.yaml, .yml or .json). gRPC starters
also write greeter.proto next to the scenario.

Examples:
  mockharness init
  mockharness init --protocol grpc -o mocks/greeter.yaml
  mockharness init -i`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.interactive {
				if err := promptInit(opts); err != nil {
					return err
				}
			}
			return writeStarter(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "output", "o", "scenario.yaml", "Scenario file to write")
	f.StringVarP(&opts.protocol, "protocol", "p", config.ProtocolHTTP, "Protocol: http, graphql, grpc or soap")
	f.StringVar(&opts.name, "name", "", "Scenario name")
	f.StringVar(&opts.address, "addr", "", "Address to bind (default: a free port on 127.0.0.1)")
	f.BoolVar(&opts.force, "force", false, "Overwrite existing files")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for the settings")
	return cmd
}

func promptInit(opts *initOptions) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which protocol should the mock speak?").
				Options(
					huh.NewOption("HTTP / REST", config.ProtocolHTTP),
					huh.NewOption("GraphQL", config.ProtocolGraphQL),
					huh.NewOption("gRPC", config.ProtocolGRPC),
					huh.NewOption("SOAP", config.ProtocolSOAP),
				).
				Value(&opts.protocol),
			huh.NewInput().
				Title("Scenario name").
				Placeholder("orders api").
				Value(&opts.name),
			huh.NewInput().
				Title("Address to bind").
				Placeholder("127.0.0.1:0").
				Value(&opts.address),
			huh.NewInput().
				Title("Where should the scenario be written?").
				Value(&opts.file).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("file is required")
					}
					return nil
				}),
		),
	)
	return form.Run()
}

func writeStarter(w io.Writer, opts *initOptions) error {
	s, extra, err := starterScenario(opts.protocol)
	if err != nil {
		return err
	}
	s.Name = opts.name
	s.Address = opts.address

	data, err := config.Marshal(s, config.FormatFromPath(opts.file))
	if err != nil {
		return err
	}
	files := map[string][]byte{opts.file: data}
	for name, content := range extra {
		files[filepath.Join(filepath.Dir(opts.file), name)] = []byte(content)
	}
	if !opts.force {
		for path := range files {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}
	}
	if dir := filepath.Dir(opts.file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	for path, content := range files {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	fmt.Fprintf(w, "Wrote %s scenario to %s (%d request(s) expected)\n", s.Protocol, opts.file, s.Slots())
	fmt.Fprintf(w, "Run it with: mockharness run -f %s\n", opts.file)
	return nil
}

const greeterProto = `syntax = "proto3";

package greeter.v1;

message HelloRequest {
  string name = 1;
}

message HelloReply {
  string message = 1;
}

service Greeter {
  rpc SayHello(HelloRequest) returns (HelloReply);
}
`

const starterSchema = `type Query {
  hello(name: String): String
}

type Mutation {
  setGreeting(text: String!): String
}
`

// starterScenario returns the starter scenario for protocol and any files it
// references, keyed by name relative to the scenario file.
func starterScenario(protocol string) (*config.Scenario, map[string]string, error) {
	s := &config.Scenario{Version: config.CurrentVersion, Protocol: protocol, MaxRunTime: "10m"}
	var extra map[string]string
	switch protocol {
	case config.ProtocolHTTP:
		s.Routes = []config.RouteSpec{
			{
				Key:       config.KeySpec{Method: "GET", Path: "/health"},
				Responses: []config.ResponseSpec{{Status: 200, JSON: map[string]any{"status": "ok"}}},
			},
			{
				Key: config.KeySpec{Method: "POST", Path: "/items"},
				Responses: []config.ResponseSpec{
					{Expr: `{status: 201, json: {id: 1, name: jsonPath(request.json, "$.name")}}`},
					{Status: 409, JSON: map[string]any{"error": "conflict"}},
				},
			},
		}
	case config.ProtocolGraphQL:
		s.GraphQL = &config.GraphQLOptions{Schema: starterSchema}
		s.Routes = []config.RouteSpec{
			{
				Key:       config.KeySpec{Field: "hello"},
				Responses: []config.ResponseSpec{{Expr: `{data: "hello " + (request.args.name ?? "world")}`}},
			},
			{
				Key:       config.KeySpec{Operation: "mutation", Field: "setGreeting"},
				Responses: []config.ResponseSpec{{Data: "ok"}},
			},
		}
	case config.ProtocolGRPC:
		s.GRPC = &config.GRPCOptions{ProtoFiles: []string{"greeter.proto"}, Reflection: true}
		s.Routes = []config.RouteSpec{{
			Key: config.KeySpec{Service: "greeter.v1.Greeter", Method: "SayHello"},
			Responses: []config.ResponseSpec{
				{JSON: map[string]any{"message": "hello"}},
				{Error: &config.GRPCErrorSpec{Code: "UNAVAILABLE", Message: "try again later"}},
			},
		}}
		extra = map[string]string{"greeter.proto": greeterProto}
	case config.ProtocolSOAP:
		s.Routes = []config.RouteSpec{
			{
				Key:       config.KeySpec{Operation: "GetStatus"},
				Responses: []config.ResponseSpec{{Body: `<GetStatusResponse><status>ok</status></GetStatusResponse>`}},
			},
			{
				Key:       config.KeySpec{Operation: "Shutdown"},
				Responses: []config.ResponseSpec{{Fault: &config.FaultSpec{Code: "Client", Message: "not allowed"}}},
			},
		}
	default:
		return nil, nil, fmt.Errorf("unknown protocol %q (expected http, graphql, grpc or soap)", protocol)
	}
	return s, extra, nil
}
