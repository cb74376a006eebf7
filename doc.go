// Package gomodel provides:
//
// - A closed type model (boolean, number, string, literal, enum, optional,
//   nullable, array, object, entity, union, reference, custom) with lazy and
//   name-based self reference
// - Decode (untrusted input -> typed value), Validate (semantic constraints)
//   and Encode (typed value -> JSON-compatible value)
// - A stable error model via Errors ({expected, got, path} with "$" paths)
//
// Design policy:
// - Keep the type model and its three operations in the root package.
// - Put selection/projection under retrieve/, policies under security/, the
//   function pipeline under function/ and middleware/, custom types under
//   custom/ and wire formats under wire/.
// - Expected failures are data (Errors, Result); only programming faults panic.
//
// Typical usage:
//
//	user := gomodel.Entity(
//	    gomodel.Field("email", gomodel.String(gomodel.MaxLength(254))),
//	    gomodel.Field("age", gomodel.Number().Optional()),
//	).WithName("User")
//
//	v, err := gomodel.Decode(user, raw, gomodel.DecodeOpt{TypeCasting: gomodel.TryCasting})
//	if errs, ok := gomodel.AsErrors(err); ok {
//	    // errs[0].Path.String() == "$.email"
//	}
//	wire, err := gomodel.Encode(user, v, gomodel.EncodeOpt{SensitiveInformation: gomodel.HideSensitive})
//
// Self-referential types are declared through a Registry:
//
//	reg := gomodel.NewRegistry()
//	reg.MustDefine(gomodel.Entity(
//	    gomodel.Field("email", gomodel.String()),
//	    gomodel.Field("friends", reg.Ref("User").Array()),
//	).WithName("User"))
package gomodel
