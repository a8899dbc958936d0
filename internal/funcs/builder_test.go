package funcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

func TestInjectQueryArgs_MergesInjectedOverDecoded(t *testing.T) {
	tables := testTables(t)

	var observed schema.Record
	def := QueryDef[schema.Record, schema.Record]{
		Name: "sum",
		Args: schema.Object(
			schema.Field("x", schema.Erase(schema.Int())),
		),
		Returns: schema.Object(
			schema.Field("total", schema.Erase(schema.Int())),
		),
		Handler: func(c *QueryCtx, args schema.Record) effect.Effect[schema.Record] {
			observed = args
			return effect.Succeed(schema.Record{
				"total": args["x"].(int64) + args["y"].(int64),
			})
		},
	}

	injected := schema.Object(
		schema.InjectedField("y", schema.Erase(schema.Int())),
	)
	wrapped := InjectQueryArgs(def, injected, func(c *QueryCtx) effect.Effect[schema.Record] {
		return effect.Succeed(schema.Record{"y": int64(2)})
	})
	desc := MustQuery(tables, wrapped)

	// The caller supplies only the user-declared field; the injected
	// field is optional at the wire.
	raw := wire.NewObject(wire.F("x", wire.Int(1)))
	require.NoError(t, desc.Args.Validate(raw))

	out, err := desc.Invoke(context.Background(), newFakeHandle(), raw)
	require.NoError(t, err)
	assert.Equal(t, schema.Record{"x": int64(1), "y": int64(2)}, observed)
	assert.True(t, wire.Equal(wire.NewObject(wire.F("total", wire.Int(3))), out))
}

func TestInjectArgs_InjectedValueWinsOverCallerValue(t *testing.T) {
	tables := testTables(t)

	var observed schema.Record
	def := QueryDef[schema.Record, schema.Record]{
		Name: "overwrite",
		Args: schema.Object(
			schema.Field("who", schema.Erase(schema.String())),
		),
		Returns: schema.Object(),
		Handler: func(c *QueryCtx, args schema.Record) effect.Effect[schema.Record] {
			observed = args
			return effect.Succeed(schema.Record{})
		},
	}
	injected := schema.Object(
		schema.InjectedField("who", schema.Erase(schema.String())),
	)
	wrapped := InjectQueryArgs(def, injected, func(c *QueryCtx) effect.Effect[schema.Record] {
		return effect.Succeed(schema.Record{"who": "system"})
	})
	desc := MustQuery(tables, wrapped)

	_, err := desc.Invoke(context.Background(), newFakeHandle(), wire.NewObject(
		wire.F("who", wire.String("caller")),
	))
	require.NoError(t, err)
	assert.Equal(t, "system", observed["who"])
}

func TestInjectArgs_ProviderFailureSkipsHandler(t *testing.T) {
	tables := testTables(t)

	handlerRan := false
	def := QueryDef[schema.Record, schema.Record]{
		Name:    "guarded",
		Args:    schema.Object(),
		Returns: schema.Object(),
		Handler: func(c *QueryCtx, args schema.Record) effect.Effect[schema.Record] {
			handlerRan = true
			return effect.Succeed(schema.Record{})
		},
	}
	wrapped := InjectQueryArgs(def, schema.Object(), func(c *QueryCtx) effect.Effect[schema.Record] {
		return effect.FailWith[schema.Record](effect.Failf(effect.CodeBadRequest, "no dice"))
	})
	desc := MustQuery(tables, wrapped)

	_, err := desc.Invoke(context.Background(), newFakeHandle(), wire.NewObject())
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeBadRequest))
	assert.False(t, handlerRan)
}

func currentUserQueryDef(observed *schema.Record) QueryDef[schema.Record, schema.Record] {
	return QueryDef[schema.Record, schema.Record]{
		Name: "whoami",
		Args: schema.Object(
			schema.Field("greeting", schema.Erase(schema.String())),
		),
		Returns: schema.Object(
			schema.Field("line", schema.Erase(schema.String())),
		),
		Handler: func(c *QueryCtx, args schema.Record) effect.Effect[schema.Record] {
			*observed = args
			return effect.Succeed(schema.Record{
				"line": args["greeting"].(string) + ", " + args[CurrentUserField].(string),
			})
		},
	}
}

func TestWithCurrentUserQuery_InjectsSubject(t *testing.T) {
	tables := testTables(t)
	fake := newFakeHandle()
	fake.identity = &platform.Identity{Subject: "u1", Issuer: "test"}

	var observed schema.Record
	desc := MustQuery(tables, WithCurrentUserQuery(currentUserQueryDef(&observed)))

	out, err := desc.Invoke(context.Background(), fake, wire.NewObject(
		wire.F("greeting", wire.String("hello")),
	))
	require.NoError(t, err)
	assert.Equal(t, "u1", observed[CurrentUserField])
	assert.True(t, wire.Equal(wire.NewObject(wire.F("line", wire.String("hello, u1"))), out))
}

func TestWithCurrentUserQuery_UnauthenticatedFailsBeforeHandler(t *testing.T) {
	tables := testTables(t)
	fake := newFakeHandle() // no identity

	var observed schema.Record
	desc := MustQuery(tables, WithCurrentUserQuery(currentUserQueryDef(&observed)))

	_, err := desc.Invoke(context.Background(), fake, wire.NewObject(
		wire.F("greeting", wire.String("hello")),
	))
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeUnauthenticated))
	assert.Nil(t, observed, "handler must not run without an identity")
}

func TestWithCurrentUserMutation_InjectsSubject(t *testing.T) {
	tables := testTables(t)
	fake := newFakeHandle()
	fake.identity = &platform.Identity{Subject: "42"}

	def := MutationDef[schema.Record, schema.Record]{
		Name: "post",
		Args: schema.Object(
			schema.Field("text", schema.Erase(schema.String())),
		),
		Returns: schema.Object(
			schema.Field("author", schema.Erase(schema.String())),
		),
		Handler: func(c *MutationCtx, args schema.Record) effect.Effect[schema.Record] {
			author := args[CurrentUserField].(string)
			insert := c.DB.Insert("notes", wire.NewObject(
				wire.F("text", wire.String(args["text"].(string))),
			))
			return effect.Map(insert, func(schema.DocID) schema.Record {
				return schema.Record{"author": author}
			})
		},
	}
	desc := MustMutation(tables, WithCurrentUserMutation(def))

	out, err := desc.Invoke(context.Background(), fake, wire.NewObject(
		wire.F("text", wire.String("first post")),
	))
	require.NoError(t, err)
	assert.True(t, wire.Equal(wire.NewObject(wire.F("author", wire.String("42"))), out))
	require.Len(t, fake.inserts, 1)
	assert.Equal(t, "notes", fake.inserts[0].table)
}

func TestWithCurrentUserAction_InjectsSubject(t *testing.T) {
	fake := newFakeHandle()
	fake.identity = &platform.Identity{Subject: "svc"}

	def := ActionDef[schema.Record, schema.Record]{
		Name:    "audit",
		Args:    schema.Object(),
		Returns: schema.Object(schema.Field("actor", schema.Erase(schema.String()))),
		Handler: func(c *ActionCtx, args schema.Record) effect.Effect[schema.Record] {
			return effect.Succeed(schema.Record{"actor": args[CurrentUserField].(string)})
		},
	}
	desc := MustAction(WithCurrentUserAction(def))

	out, err := desc.Invoke(context.Background(), fake, wire.NewObject())
	require.NoError(t, err)
	assert.True(t, wire.Equal(wire.NewObject(wire.F("actor", wire.String("svc"))), out))
}

func TestMerge_InjectedFieldOptionalAtWire(t *testing.T) {
	user := schema.Object(schema.Field("x", schema.Erase(schema.Int())))
	merged := user.Merge(schema.Object(
		schema.InjectedField("y", schema.Erase(schema.Int())),
	))

	v := schema.MustCompile(merged.Type())
	assert.NoError(t, v.Validate(wire.NewObject(wire.F("x", wire.Int(1)))))
	assert.NoError(t, v.Validate(wire.NewObject(
		wire.F("x", wire.Int(1)),
		wire.F("y", wire.Int(9)),
	)))
	assert.Error(t, v.Validate(wire.NewObject(wire.F("y", wire.Int(9)))))
}
