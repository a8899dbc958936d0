// Package demo is a small message board built on the function pipeline.
// It exists to exercise every capability end to end: queries over
// indexed scans, an authenticated mutation, an action combining
// sub-invocations, vector search, and the scheduler.
package demo

import (
	"github.com/Makisuo/confect-plus/internal/funcs"
	"github.com/Makisuo/confect-plus/internal/schema"
)

// VectorIndex is the similarity index over message embeddings.
const VectorIndex = "message_embeddings"

// Function names as registered.
const (
	RefEcho               = "demo/echo"
	RefListMessages       = "demo/listMessages"
	RefSendMessage        = "demo/sendMessage"
	RefNotifySimilar      = "demo/notifySimilar"
	RefMessageCount       = "demo/messageCount"
	RefRecordNotification = "demo/recordNotification"
)

// Tables declares the message board's entity schema set.
func Tables() *schema.Tables {
	return schema.MustNewTables(
		schema.Table{
			Name: "users",
			Doc: schema.Object(
				schema.Field("name", schema.Erase(schema.String())),
				schema.Field("email", schema.Erase(schema.String())),
			),
			Indexes: []schema.Index{
				{Name: "by_email", Field: "email", Unique: true},
			},
		},
		schema.Table{
			Name: "messages",
			Doc: schema.Object(
				schema.Field("author", schema.Erase(schema.String())),
				schema.Field("text", schema.Erase(schema.String())),
			),
			Indexes: []schema.Index{
				{Name: "by_author", Field: "author"},
			},
		},
		schema.Table{
			Name: "notifications",
			Doc: schema.Object(
				schema.Field("text", schema.Erase(schema.String())),
				schema.Field("matches", schema.Erase(schema.Int())),
			),
		},
	)
}

// Register compiles every demo function against the entity schema set
// and registers it.
func Register(reg *funcs.Registry) error {
	tables := Tables()

	descriptors := []*funcs.Descriptor{
		funcs.MustQuery(tables, echoDef()),
		funcs.MustQuery(tables, listMessagesDef()),
		funcs.MustMutation(tables, funcs.WithCurrentUserMutation(sendMessageDef())),
		funcs.MustAction(notifySimilarDef()),
		funcs.MustQuery(tables, messageCountDef()),
		funcs.MustMutation(tables, recordNotificationDef()),
	}
	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
