// Package solverrpc is the out-of-process solver backend: it speaks to
// any SMT solver wrapped behind a small gRPC contract, building requests
// with dynamic protobuf messages so no generated stubs are needed. The
// service contract is bundled below and can be overridden with an
// operator-supplied .proto when the remote solver's deployment differs.
package solverrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/specverify/verifier/internal/smt"
)

// solverProto is the bundled service contract. A conforming remote
// solver accepts an SMT-LIB 2 script and answers with a status, an
// optional reason, and a name-to-value model for sat results.
const solverProto = `syntax = "proto3";

package specverify.solver;

service Solver {
  rpc Check (CheckRequest) returns (CheckResult);
}

message CheckRequest {
  string smtlib = 1;
  int64 timeout_ms = 2;
}

message CheckResult {
  string status = 1;
  string reason = 2;
  map<string, string> model = 3;
}
`

const (
	protoFileName = "solver.proto"
	serviceName   = "specverify.solver.Solver"
	methodName    = "Check"
)

// Engine is a remote smt.Engine over gRPC.
type Engine struct {
	conn   *grpc.ClientConn
	method *desc.MethodDescriptor
}

// Dial connects to a remote solver at target. protoPath optionally
// names an on-disk .proto overriding the bundled contract; it must
// still declare the same service and method names.
func Dial(target, protoPath string) (*Engine, error) {
	method, err := loadMethod(protoPath)
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to solver %s: %w", target, err)
	}
	return &Engine{conn: conn, method: method}, nil
}

// Close releases the connection.
func (e *Engine) Close() error { return e.conn.Close() }

func loadMethod(protoPath string) (*desc.MethodDescriptor, error) {
	parser := protoparse.Parser{}
	file := protoPath
	if file == "" {
		file = protoFileName
		parser.Accessor = protoparse.FileContentsFromMap(map[string]string{
			protoFileName: solverProto,
		})
	}
	fds, err := parser.ParseFiles(file)
	if err != nil {
		return nil, fmt.Errorf("parsing solver contract %s: %w", file, err)
	}
	for _, fd := range fds {
		svc := fd.FindService(serviceName)
		if svc == nil {
			continue
		}
		if md := svc.FindMethodByName(methodName); md != nil {
			return md, nil
		}
	}
	return nil, fmt.Errorf("solver contract %s declares no %s/%s", file, serviceName, methodName)
}

// CheckSat renders the assertions to SMT-LIB, ships them to the remote
// solver, and maps the reply into the engine result shape. The context
// deadline the safe solver set travels both in the request (so a
// well-behaved solver stops itself) and on the call (so a stuck one is
// abandoned).
func (e *Engine) CheckSat(ctx context.Context, assertions []*smt.Term) (smt.RawResult, error) {
	tagged := make([]smt.TaggedAssertion, len(assertions))
	for i, t := range assertions {
		tagged[i] = smt.TaggedAssertion{Tag: smt.Tag("q", "remote", i), Term: t, Kind: "ref"}
	}
	script, _ := smt.BuildScript(tagged)

	var timeoutMs int64
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			timeoutMs = remaining.Milliseconds()
		}
	}

	req := dynamic.NewMessage(e.method.GetInputType())
	req.SetFieldByName("smtlib", script)
	req.SetFieldByName("timeout_ms", timeoutMs)

	resp := dynamic.NewMessage(e.method.GetOutputType())
	methodPath := fmt.Sprintf("/%s/%s", serviceName, methodName)
	if err := e.conn.Invoke(ctx, methodPath, req, resp); err != nil {
		return smt.RawResult{}, fmt.Errorf("RPC failed: %w", err)
	}

	return decodeResult(resp)
}

func decodeResult(resp *dynamic.Message) (smt.RawResult, error) {
	status, _ := resp.GetFieldByName("status").(string)
	reason, _ := resp.GetFieldByName("reason").(string)

	res := smt.RawResult{Reason: reason}
	switch status {
	case "sat":
		res.Status = smt.StatusSat
	case "unsat":
		res.Status = smt.StatusUnsat
	case "unknown":
		res.Status = smt.StatusUnknown
	default:
		res.Status = smt.StatusError
		if res.Reason == "" {
			res.Reason = fmt.Sprintf("solver returned unrecognized status %q", status)
		}
	}

	if raw, ok := resp.GetFieldByName("model").(map[interface{}]interface{}); ok && len(raw) > 0 {
		res.Model = make(map[string]interface{}, len(raw))
		for k, v := range raw {
			if ks, ok := k.(string); ok {
				res.Model[ks] = v
			}
		}
	}
	return res, nil
}
