package funcs

import (
	"fmt"

	"github.com/Makisuo/confect-plus/internal/capability"
	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
)

// Builder combinators compose new function declarations from existing
// ones using only the public declaration contract - they never reach
// into the compilation pipeline.
//
// The field-injection pattern: merge a schema of always-required fields
// into the user's argument schema (injected fields win on collision and
// are optional at the wire), compute the injected values first, merge
// them into the decoded arguments (computed values win), then run the
// user's handler with the combined record. If computing the injected
// values fails, the invocation fails before the user handler runs.

// CurrentUserField is the record field identity injection fills in.
const CurrentUserField = "currentUserId"

// InjectQueryArgs wraps a record-argument query declaration with
// required-field injection.
func InjectQueryArgs[R any](
	def QueryDef[schema.Record, R],
	injected *schema.ObjectCodec,
	provide func(c *QueryCtx) effect.Effect[schema.Record],
) QueryDef[schema.Record, R] {
	def.Args = mustRecordCodec(def.Name, def.Args).Merge(injected)
	def.Handler = injectHandler(def.Handler, provide)
	return def
}

// InjectMutationArgs wraps a record-argument mutation declaration with
// required-field injection.
func InjectMutationArgs[R any](
	def MutationDef[schema.Record, R],
	injected *schema.ObjectCodec,
	provide func(c *MutationCtx) effect.Effect[schema.Record],
) MutationDef[schema.Record, R] {
	def.Args = mustRecordCodec(def.Name, def.Args).Merge(injected)
	def.Handler = injectHandler(def.Handler, provide)
	return def
}

// InjectActionArgs wraps a record-argument action declaration with
// required-field injection.
func InjectActionArgs[R any](
	def ActionDef[schema.Record, R],
	injected *schema.ObjectCodec,
	provide func(c *ActionCtx) effect.Effect[schema.Record],
) ActionDef[schema.Record, R] {
	def.Args = mustRecordCodec(def.Name, def.Args).Merge(injected)
	def.Handler = injectHandler(def.Handler, provide)
	return def
}

// WithCurrentUserQuery injects the caller's subject as currentUserId.
// An unauthenticated invocation fails with the typed UNAUTHENTICATED
// failure before the user handler runs.
func WithCurrentUserQuery[R any](def QueryDef[schema.Record, R]) QueryDef[schema.Record, R] {
	return InjectQueryArgs(def, currentUserCodec(), func(c *QueryCtx) effect.Effect[schema.Record] {
		return currentUserRecord(c.Auth)
	})
}

// WithCurrentUserMutation injects the caller's subject as currentUserId.
func WithCurrentUserMutation[R any](def MutationDef[schema.Record, R]) MutationDef[schema.Record, R] {
	return InjectMutationArgs(def, currentUserCodec(), func(c *MutationCtx) effect.Effect[schema.Record] {
		return currentUserRecord(c.Auth)
	})
}

// WithCurrentUserAction injects the caller's subject as currentUserId.
func WithCurrentUserAction[R any](def ActionDef[schema.Record, R]) ActionDef[schema.Record, R] {
	return InjectActionArgs(def, currentUserCodec(), func(c *ActionCtx) effect.Effect[schema.Record] {
		return currentUserRecord(c.Auth)
	})
}

func currentUserCodec() *schema.ObjectCodec {
	return schema.Object(
		schema.InjectedField(CurrentUserField, schema.Erase(schema.String())),
	)
}

func currentUserRecord(auth capability.Auth) effect.Effect[schema.Record] {
	return effect.FlatMap(auth.Identity(), func(ident *platform.Identity) effect.Effect[schema.Record] {
		if ident == nil {
			return effect.FailWith[schema.Record](effect.Failf(effect.CodeUnauthenticated, "not authenticated"))
		}
		return effect.Succeed(schema.Record{CurrentUserField: ident.Subject})
	})
}

// injectHandler wraps a handler so injected values are computed first
// and merged over the decoded arguments.
func injectHandler[C any, R any](
	handler func(c C, args schema.Record) effect.Effect[R],
	provide func(c C) effect.Effect[schema.Record],
) func(c C, args schema.Record) effect.Effect[R] {
	return func(c C, args schema.Record) effect.Effect[R] {
		return effect.FlatMap(provide(c), func(injected schema.Record) effect.Effect[R] {
			combined := args.Clone()
			for k, v := range injected {
				combined[k] = v
			}
			return handler(c, combined)
		})
	}
}

// mustRecordCodec asserts that a record declaration's argument codec is
// an object codec. Declarations are static program text; anything else
// is a bug at the declaration site.
func mustRecordCodec(name string, c schema.Codec[schema.Record]) *schema.ObjectCodec {
	obj, ok := c.(*schema.ObjectCodec)
	if !ok {
		panic(fmt.Sprintf("funcs: %q: argument injection requires an object codec, got %T", name, c))
	}
	return obj
}
