package grpc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ProtoSchema represents parsed .proto file(s) and provides access to
// service and method descriptors.
type ProtoSchema struct {
	files    []protoreflect.FileDescriptor
	registry *protoregistry.Files
	services map[string]*ServiceDescriptor
}

// ServiceDescriptor describes a gRPC service and its methods.
type ServiceDescriptor struct {
	// Name is the fully qualified service name (e.g., "package.ServiceName").
	Name string

	// Methods maps method names to their descriptors.
	Methods map[string]*MethodDescriptor
}

// MethodDescriptor describes a gRPC method including its streaming characteristics.
type MethodDescriptor struct {
	Name            string
	FullName        string
	InputType       string
	OutputType      string
	ClientStreaming bool
	ServerStreaming bool

	desc protoreflect.MethodDescriptor
}

// ParseProtoFile parses a single .proto file and returns a ProtoSchema.
// importPaths specifies directories to search for imported files.
func ParseProtoFile(path string, importPaths []string) (*ProtoSchema, error) {
	return ParseProtoFiles([]string{path}, importPaths)
}

// ParseProtoFiles parses multiple .proto files and returns a unified ProtoSchema.
// Imports are searched in importPaths, then next to each input file.
func ParseProtoFiles(paths []string, importPaths []string) (*ProtoSchema, error) {
	if len(paths) == 0 {
		return nil, ErrNoProtoFiles
	}
	dirs := make([]string, 0, len(paths))
	for _, p := range paths {
		dirs = append(dirs, filepath.Dir(p))
	}
	return compile(protocompile.CompositeResolver{
		&protocompile.SourceResolver{ImportPaths: importPaths},
		&dirResolver{dirs: dirs},
	}, paths)
}

// ParseProtoSource compiles in-memory sources keyed by file name.
// With no names given every source is compiled.
func ParseProtoSource(sources map[string]string, names ...string) (*ProtoSchema, error) {
	if len(names) == 0 {
		for name := range sources {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return nil, ErrNoProtoFiles
	}
	return compile(&protocompile.SourceResolver{
		Accessor: protocompile.SourceAccessorFromMap(sources),
	}, names)
}

func compile(resolver protocompile.Resolver, names []string) (*ProtoSchema, error) {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(resolver),
	}
	compiled, err := compiler.Compile(context.Background(), names...)
	if err != nil {
		return nil, fmt.Errorf("compile proto files: %w", err)
	}

	schema := &ProtoSchema{
		files:    make([]protoreflect.FileDescriptor, 0, len(compiled)),
		registry: new(protoregistry.Files),
		services: make(map[string]*ServiceDescriptor),
	}
	for _, file := range compiled {
		schema.files = append(schema.files, file)
		if err := schema.register(file); err != nil {
			return nil, err
		}
		schema.addServices(file)
	}
	return schema, nil
}

// register adds fd and its imports to the schema's registry, dependencies first.
func (p *ProtoSchema) register(fd protoreflect.FileDescriptor) error {
	if _, err := p.registry.FindFileByPath(fd.Path()); err == nil {
		return nil
	}
	imports := fd.Imports()
	for i := 0; i < imports.Len(); i++ {
		if err := p.register(imports.Get(i).FileDescriptor); err != nil {
			return err
		}
	}
	if err := p.registry.RegisterFile(fd); err != nil {
		return fmt.Errorf("register %s: %w", fd.Path(), err)
	}
	return nil
}

func (p *ProtoSchema) addServices(file protoreflect.FileDescriptor) {
	services := file.Services()
	for i := 0; i < services.Len(); i++ {
		svc := services.Get(i)
		sd := &ServiceDescriptor{
			Name:    string(svc.FullName()),
			Methods: make(map[string]*MethodDescriptor),
		}
		methods := svc.Methods()
		for j := 0; j < methods.Len(); j++ {
			m := methods.Get(j)
			sd.Methods[string(m.Name())] = &MethodDescriptor{
				Name:            string(m.Name()),
				FullName:        string(m.FullName()),
				InputType:       string(m.Input().FullName()),
				OutputType:      string(m.Output().FullName()),
				ClientStreaming: m.IsStreamingClient(),
				ServerStreaming: m.IsStreamingServer(),
				desc:            m,
			}
		}
		p.services[sd.Name] = sd
	}
}

// dirResolver finds imports relative to the directories of the input files.
type dirResolver struct {
	dirs []string
}

func (r *dirResolver) FindFileByPath(path string) (protocompile.SearchResult, error) {
	candidates := make([]string, 0, len(r.dirs)+1)
	for _, dir := range r.dirs {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	candidates = append(candidates, path)

	for _, c := range candidates {
		f, err := os.Open(c)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return protocompile.SearchResult{}, err
		}
		return protocompile.SearchResult{Source: f}, nil
	}
	return protocompile.SearchResult{}, fs.ErrNotExist
}

// Service returns a service descriptor by its fully qualified name.
// Returns nil if the service is not found.
func (p *ProtoSchema) Service(name string) *ServiceDescriptor {
	return p.services[name]
}

// Services returns all service names in sorted order.
func (p *ProtoSchema) Services() []string {
	names := make([]string, 0, len(p.services))
	for name := range p.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Method looks up a method by service and method name.
func (p *ProtoSchema) Method(service, method string) (*MethodDescriptor, error) {
	svc := p.services[service]
	if svc == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}
	m := svc.Methods[method]
	if m == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrMethodNotFound, service, method)
	}
	return m, nil
}

// ListMethods returns all method names in sorted order.
func (s *ServiceDescriptor) ListMethods() []string {
	names := make([]string, 0, len(s.Methods))
	for name := range s.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsUnary returns true if the method is unary (no streaming in either direction).
func (m *MethodDescriptor) IsUnary() bool {
	return !m.ClientStreaming && !m.ServerStreaming
}

// StreamingType returns a string describing the streaming type.
func (m *MethodDescriptor) StreamingType() string {
	switch {
	case m.ClientStreaming && m.ServerStreaming:
		return "bidirectional"
	case m.ClientStreaming:
		return "client_streaming"
	case m.ServerStreaming:
		return "server_streaming"
	default:
		return "unary"
	}
}

// Input returns the message descriptor for the request type.
func (m *MethodDescriptor) Input() protoreflect.MessageDescriptor {
	return m.desc.Input()
}

// Output returns the message descriptor for the response type.
func (m *MethodDescriptor) Output() protoreflect.MessageDescriptor {
	return m.desc.Output()
}

// Files returns the parsed file descriptors.
func (p *ProtoSchema) Files() []protoreflect.FileDescriptor {
	return p.files
}

// Resolver returns a descriptor resolver over the parsed files and their imports.
func (p *ProtoSchema) Resolver() protodesc.Resolver {
	return p.registry
}

// ServiceCount returns the number of services in the schema.
func (p *ProtoSchema) ServiceCount() int {
	return len(p.services)
}

// MethodCount returns the total number of methods across all services.
func (p *ProtoSchema) MethodCount() int {
	count := 0
	for _, svc := range p.services {
		count += len(svc.Methods)
	}
	return count
}

// GetServiceInfo describes the schema's services for server reflection.
func (p *ProtoSchema) GetServiceInfo() map[string]grpc.ServiceInfo {
	info := make(map[string]grpc.ServiceInfo, len(p.services))
	for name, svc := range p.services {
		methods := make([]grpc.MethodInfo, 0, len(svc.Methods))
		for _, m := range svc.ListMethods() {
			md := svc.Methods[m]
			methods = append(methods, grpc.MethodInfo{
				Name:           md.Name,
				IsClientStream: md.ClientStreaming,
				IsServerStream: md.ServerStreaming,
			})
		}
		info[name] = grpc.ServiceInfo{Methods: methods}
	}
	return info
}

// CheckRoutes verifies that every route names a unary method of the schema.
func (p *ProtoSchema) CheckRoutes(routes []Route) error {
	var errs []error
	for _, r := range routes {
		m, err := p.Method(r.Key.Service, r.Key.Method)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !m.IsUnary() {
			errs = append(errs, fmt.Errorf("%w: %s is %s", ErrStreamingMethod, r.Key, m.StreamingType()))
		}
	}
	return errors.Join(errs...)
}

// DecodeJSON renders a request message of the given method as JSON.
func (p *ProtoSchema) DecodeJSON(service, method string, data []byte) (string, error) {
	m, err := p.Method(service, method)
	if err != nil {
		return "", err
	}
	msg := dynamicpb.NewMessage(m.Input())
	if err := proto.Unmarshal(data, msg); err != nil {
		return "", fmt.Errorf("decode %s: %w", m.InputType, err)
	}
	out, err := protojson.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", m.InputType, err)
	}
	return string(out), nil
}

// JSONResponse builds a response message of the given method from JSON.
func (p *ProtoSchema) JSONResponse(service, method, body string) (Response, error) {
	m, err := p.Method(service, method)
	if err != nil {
		return Response{}, err
	}
	msg := dynamicpb.NewMessage(m.Output())
	if body != "" {
		if err := protojson.Unmarshal([]byte(body), msg); err != nil {
			return Response{}, fmt.Errorf("build %s: %w", m.OutputType, err)
		}
	}
	return Proto(msg), nil
}

// Ensure linker.File satisfies protoreflect.FileDescriptor at compile time.
var _ protoreflect.FileDescriptor = (linker.File)(nil)
