package demo

import (
	"strings"

	"github.com/Makisuo/confect-plus/internal/capability"
	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/funcs"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// echo repeats a message back. Public, pure, and the simplest possible
// walk through the full invocation pipeline.
func echoDef() funcs.QueryDef[schema.Record, schema.Record] {
	return funcs.QueryDef[schema.Record, schema.Record]{
		Name: RefEcho,
		Args: schema.Object(
			schema.Field("message", schema.Erase(schema.String())),
			schema.Field("count", schema.Erase(schema.Int())),
		),
		Returns: schema.Object(
			schema.Field("response", schema.Erase(schema.String())),
			schema.Field("repeated", schema.Erase(schema.Array(schema.String()))),
		),
		Handler: func(c *funcs.QueryCtx, args schema.Record) effect.Effect[schema.Record] {
			msg := args["message"].(string)
			n := int(args["count"].(int64))
			if n < 0 {
				return effect.FailWith[schema.Record](
					effect.Failf(effect.CodeBadRequest, "count must not be negative"))
			}
			repeated := make([]string, n)
			for i := range repeated {
				repeated[i] = msg
			}
			return effect.Succeed(schema.Record{
				"response": "Echo: " + msg,
				"repeated": repeated,
			})
		},
	}
}

// listMessages pages through messages, optionally narrowed to one
// author via the by_author index.
func listMessagesDef() funcs.QueryDef[schema.Record, schema.Record] {
	messageShape := schema.Object(
		schema.Field("id", schema.Erase(schema.String())),
		schema.Field("author", schema.Erase(schema.String())),
		schema.Field("text", schema.Erase(schema.String())),
	)
	return funcs.QueryDef[schema.Record, schema.Record]{
		Name: RefListMessages,
		Args: schema.Object(
			schema.Field("author", schema.Erase(schema.Optional(schema.String()))),
			schema.Field("cursor", schema.Erase(schema.Optional(schema.String()))),
			schema.Field("limit", schema.Erase(schema.Optional(schema.Int()))),
		),
		Returns: schema.Object(
			schema.Field("messages", schema.Erase(schema.Array[schema.Record](messageShape))),
			schema.Field("cursor", schema.Erase(schema.String())),
			schema.Field("done", schema.Erase(schema.Bool())),
		),
		Handler: func(c *funcs.QueryCtx, args schema.Record) effect.Effect[schema.Record] {
			opts := capability.ScanOptions{}
			// Absent optional fields have no record entry at all.
			if author, ok := args["author"].(*string); ok && author != nil {
				opts.Index = "by_author"
				opts.Equals = wire.String(*author)
			}
			if cursor, ok := args["cursor"].(*string); ok && cursor != nil {
				opts.Cursor = *cursor
			}
			if limit, ok := args["limit"].(*int64); ok && limit != nil {
				opts.Limit = int(*limit)
			}

			return effect.Map(c.DB.Scan("messages", opts), func(page capability.Page) schema.Record {
				messages := make([]schema.Record, len(page.Documents))
				for i, doc := range page.Documents {
					messages[i] = schema.Record{
						"id":     string(doc.ID),
						"author": string(doc.Fields["author"].(wire.String)),
						"text":   string(doc.Fields["text"].(wire.String)),
					}
				}
				return schema.Record{
					"messages": messages,
					"cursor":   page.Cursor,
					"done":     page.Done,
				}
			})
		},
	}
}

// sendMessage posts a message as the authenticated caller. The builder
// wrapper injects currentUserId; unauthenticated calls never reach the
// handler.
func sendMessageDef() funcs.MutationDef[schema.Record, schema.Record] {
	return funcs.MutationDef[schema.Record, schema.Record]{
		Name: RefSendMessage,
		Args: schema.Object(
			schema.Field("text", schema.Erase(schema.String())),
		),
		Returns: schema.Object(
			schema.Field("id", schema.Erase(schema.String())),
		),
		Handler: func(c *funcs.MutationCtx, args schema.Record) effect.Effect[schema.Record] {
			text := args["text"].(string)
			if strings.TrimSpace(text) == "" {
				return effect.FailWith[schema.Record](
					effect.Failf(effect.CodeBadRequest, "message text is empty"))
			}
			insert := c.DB.Insert("messages", wire.NewObject(
				wire.F("author", wire.String(args[funcs.CurrentUserField].(string))),
				wire.F("text", wire.String(text)),
			))
			return effect.Map(insert, func(id schema.DocID) schema.Record {
				return schema.Record{"id": string(id)}
			})
		},
	}
}

// messageCount is internal: only other functions may call it.
func messageCountDef() funcs.QueryDef[schema.Record, schema.Record] {
	return funcs.QueryDef[schema.Record, schema.Record]{
		Name:       RefMessageCount,
		Visibility: funcs.Internal,
		Args:       schema.Object(),
		Returns: schema.Object(
			schema.Field("count", schema.Erase(schema.Int())),
		),
		Handler: func(c *funcs.QueryCtx, args schema.Record) effect.Effect[schema.Record] {
			return effect.Map(countMessages(c.DB, "", 0), func(n int64) schema.Record {
				return schema.Record{"count": n}
			})
		},
	}
}

// countMessages pages through the table until done.
func countMessages(db capability.Reader, cursor string, acc int64) effect.Effect[int64] {
	return effect.FlatMap(
		db.Scan("messages", capability.ScanOptions{Cursor: cursor}),
		func(page capability.Page) effect.Effect[int64] {
			total := acc + int64(len(page.Documents))
			if page.Done {
				return effect.Succeed(total)
			}
			return countMessages(db, page.Cursor, total)
		},
	)
}

// recordNotification is the internal mutation scheduled jobs land on.
func recordNotificationDef() funcs.MutationDef[schema.Record, schema.Record] {
	return funcs.MutationDef[schema.Record, schema.Record]{
		Name:       RefRecordNotification,
		Visibility: funcs.Internal,
		Args: schema.Object(
			schema.Field("text", schema.Erase(schema.String())),
			schema.Field("matches", schema.Erase(schema.Int())),
		),
		Returns: schema.Object(
			schema.Field("id", schema.Erase(schema.String())),
		),
		Handler: func(c *funcs.MutationCtx, args schema.Record) effect.Effect[schema.Record] {
			insert := c.DB.Insert("notifications", wire.NewObject(
				wire.F("text", wire.String(args["text"].(string))),
				wire.F("matches", wire.Int(args["matches"].(int64))),
			))
			return effect.Map(insert, func(id schema.DocID) schema.Record {
				return schema.Record{"id": string(id)}
			})
		},
	}
}

// notifySimilar finds stored messages similar to the given text, then
// schedules an internal mutation recording the notification. It also
// calls the internal messageCount query, exercising every action
// capability except storage.
func notifySimilarDef() funcs.ActionDef[schema.Record, schema.Record] {
	return funcs.ActionDef[schema.Record, schema.Record]{
		Name: RefNotifySimilar,
		Args: schema.Object(
			schema.Field("text", schema.Erase(schema.String())),
			schema.Field("limit", schema.Erase(schema.Int())),
		),
		Returns: schema.Object(
			schema.Field("total", schema.Erase(schema.Int())),
			schema.Field("matches", schema.Erase(schema.Array(schema.String()))),
			schema.Field("jobId", schema.Erase(schema.String())),
		),
		Handler: func(c *funcs.ActionCtx, args schema.Record) effect.Effect[schema.Record] {
			text := args["text"].(string)
			limit := int(args["limit"].(int64))

			count := c.Caller.RunQuery(RefMessageCount, wire.NewObject())
			search := c.Vector.Search(VectorIndex, Embed(text), limit)

			return effect.FlatMap(effect.Zip(count, search),
				func(p effect.Pair[wire.Value, []platform.VectorMatch]) effect.Effect[schema.Record] {
					total := int64(p.First.(wire.Object)["count"].(wire.Int))

					matches := make([]string, len(p.Second))
					for i, m := range p.Second {
						matches[i] = string(m.ID)
					}

					record := c.Scheduler.RunAfter(0, RefRecordNotification, wire.NewObject(
						wire.F("text", wire.String(text)),
						wire.F("matches", wire.Int(int64(len(matches)))),
					))
					return effect.Map(record, func(jobID platform.JobID) schema.Record {
						return schema.Record{
							"total":   total,
							"matches": matches,
							"jobId":   string(jobID),
						}
					})
				})
		},
	}
}
