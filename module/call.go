package module

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/function"
	"github.com/reoring/gomodel/retrieve"
)

// Failure reasons of a Response.
const (
	ReasonDecodeRequest = "Error while decoding request"
	ReasonCallFailed    = "Function call failed"
)

// Request is a call in wire form: Input and Retrieve are raw values (maps,
// slices and scalars as produced by the wire package).
type Request struct {
	Function    string
	Input       any
	Retrieve    any
	OperationID string
}

// Outcome is the function result of a successful call.
type Outcome struct {
	IsOk   bool
	Value  any
	Errors map[string]any
}

// Response is the transport-neutral answer of Call. Success is false when the
// request could not be decoded or the function faulted; business errors are
// successful calls whose Result is not ok.
type Response struct {
	Success        bool
	OperationID    string
	Result         Outcome
	Reason         string
	AdditionalInfo any
}

// Value renders the response as a JSON-compatible document:
//
//	{"success": true, "operationId": "...", "result": {"isOk": true, "value": ...}}
//	{"success": true, "operationId": "...", "result": {"isOk": false, "errors": {...}}}
//	{"success": false, "reason": "...", "additionalInfo": ...}
func (r Response) Value() map[string]any {
	if !r.Success {
		out := map[string]any{"success": false, "reason": r.Reason}
		if r.AdditionalInfo != nil {
			out["additionalInfo"] = r.AdditionalInfo
		}
		return out
	}
	result := map[string]any{"isOk": r.Result.IsOk}
	if r.Result.IsOk {
		result["value"] = r.Result.Value
	} else {
		result["errors"] = r.Result.Errors
	}
	return map[string]any{"success": true, "operationId": r.OperationID, "result": result}
}

var exactDecoding = gomodel.DecodeOpt{
	ErrorReporting:  gomodel.StopAtFirstError,
	FieldStrictness: gomodel.ExpectExactFields,
	TypeCasting:     gomodel.ExpectExactTypes,
}

// Call decodes req, applies the function and encodes its result with the type
// selected by the retrieve spec. It never returns a Go error: decoding
// failures and faults become failed responses, and faults are logged. The
// message of a fault only reaches the caller when the module exposes faults.
func (m *Module) Call(ctx context.Context, req Request) Response {
	fn, ok := m.functions[req.Function]
	if !ok {
		return decodeFailure(gomodel.Errors{
			gomodel.NewError(gomodel.CodeInvalidEnum, functionNames(m.names), req.Function),
		}.PrependField("functionName"))
	}

	input, err := gomodel.Decode(fn.Input, req.Input, exactDecoding)
	if err != nil {
		errs, _ := gomodel.AsErrors(err)
		return decodeFailure(errs.PrependField("input"))
	}
	spec, err := retrieve.Decode(fn.Output, fn.Retrieve, req.Retrieve)
	if err != nil {
		errs, _ := gomodel.AsErrors(err)
		return decodeFailure(errs.PrependField("retrieve"))
	}

	operationID := req.OperationID
	if operationID == "" {
		operationID = uuid.NewString()
	}
	logger := m.logger.With().Str("operationId", operationID).Logger()
	logger.Debug().
		Str("function", req.Function).
		Interface("input", gomodel.EncodeWithoutValidation(fn.Input, input, gomodel.EncodeOpt{SensitiveInformation: gomodel.HideSensitive})).
		Interface("retrieve", spec.Value()).
		Msg("call")

	res, err := fn.Apply(ctx, function.Args{
		Input:       input,
		Retrieve:    spec,
		OperationID: operationID,
		Logger:      logger,
	})
	if err != nil {
		return m.fault(req.Function, operationID, err)
	}

	out := Response{Success: true, OperationID: operationID}
	if res.IsOk() {
		value, err := gomodel.Encode(retrieve.SelectedType(fn.Output, spec), res.Value())
		if err != nil {
			return m.fault(req.Function, operationID, &function.InvalidOutputError{Function: req.Function, Errors: mustErrors(err)})
		}
		out.Result = Outcome{IsOk: true, Value: value}
		return out
	}
	encoded := make(map[string]any, 1)
	for name, payload := range res.Error() {
		value, err := gomodel.Encode(fn.Errors[name], payload)
		if err != nil {
			return m.fault(req.Function, operationID, &function.InvalidOutputError{Function: req.Function, Errors: mustErrors(err).PrependField(name)})
		}
		encoded[name] = value
	}
	out.Result = Outcome{Errors: encoded}
	return out
}

func (m *Module) fault(name, operationID string, err error) Response {
	m.logger.Error().
		Err(err).
		Str("function", name).
		Str("operationId", operationID).
		Msg("function call failed")
	var info any
	var unauthorized *function.UnauthorizedAccessError
	switch {
	case errors.As(err, &unauthorized):
		info = unauthorized.Violations.Value()
	case m.exposeFaults:
		info = err.Error()
	}
	return Response{Reason: ReasonCallFailed, OperationID: operationID, AdditionalInfo: info}
}

func decodeFailure(errs gomodel.Errors) Response {
	return Response{Reason: ReasonDecodeRequest, AdditionalInfo: errs}
}

func mustErrors(err error) gomodel.Errors {
	if errs, ok := gomodel.AsErrors(err); ok {
		return errs
	}
	return gomodel.Errors{gomodel.NewError(gomodel.CodeCustom, err.Error(), nil)}
}

func functionNames(names []string) string {
	return gomodel.Enum(names).String()
}
