// Template repository encapsulates the data access logic (interactions with the DB) related to Wishlist Templates in Wishful.

package template

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// CreateTemplate saves t and indexes it as public and under its creator.
	CreateTemplate(ctx context.Context, logger log.Logger, t entity.Template) error
	// GetTemplate returns the template with id along with its usage count.
	GetTemplate(ctx context.Context, logger log.Logger, id string) (entity.Template, error)
	// ListTemplateIDs returns ids of the public templates plus the ones username created.
	ListTemplateIDs(ctx context.Context, logger log.Logger, username string) ([]string, error)
	// UpdateTemplate overwrites t, 404 if it vanished meanwhile.
	UpdateTemplate(ctx context.Context, logger log.Logger, t entity.Template) error
	// DeleteTemplate removes t with its index entries and usage count.
	DeleteTemplate(ctx context.Context, logger log.Logger, t entity.Template) error
	// IncrUsage counts one more wishlist made from template id.
	IncrUsage(ctx context.Context, logger log.Logger, id string) (int64, error)
	// SeedTemplates saves templates unless seeding already happened once, reports whether it did now.
	SeedTemplates(ctx context.Context, logger log.Logger, templates []entity.Template) (bool, error)
}

// repository struct of template Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func templateKey(id string) string {
	return "template:" + id
}

func userIndexKey(username string) string {
	return "user-templates:" + username
}

const (
	publicIndexKey = "templates:public"
	usageKey       = "templates:usage"
	seededKey      = "templates:seeded"
)

// Queues the writes saving t, the usage count is left alone.
func save(ctx context.Context, pipe redis.Pipeliner, t entity.Template, doc []byte) {
	pipe.Set(ctx, templateKey(t.ID), doc, 0)
	if t.CreatedBy != "" {
		pipe.SAdd(ctx, userIndexKey(t.CreatedBy), t.ID)
	}
	if t.IsPublic {
		pipe.SAdd(ctx, publicIndexKey, t.ID)
	} else {
		pipe.SRem(ctx, publicIndexKey, t.ID)
	}
}

// Usage count isn't part of the document, it changes far more often.
func marshal(t entity.Template) ([]byte, error) {
	t.UsageCount = 0
	return json.Marshal(t)
}

// Returns nil if the template got successfully added into the DB.
func (r repository) CreateTemplate(ctx context.Context, logger log.Logger, t entity.Template) error {
	doc, mrsherr := marshal(t)
	if mrsherr != nil {
		logger.WithCtx(ctx).Error().Err(mrsherr).Msg("Couldn't marshal template in template.CreateTemplate")
		return errors.InternalServerError("")
	}
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		save(ctx, pipe, t, doc)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in template.CreateTemplate")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns the template if found in the DB.
func (r repository) GetTemplate(ctx context.Context, logger log.Logger, id string) (entity.Template, error) {
	t := entity.Template{}
	var (
		doc   *redis.StringCmd
		usage *redis.StringCmd
	)
	_, dberr := r.db.Client().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		doc = pipe.Get(ctx, templateKey(id))
		usage = pipe.HGet(ctx, usageKey, id)
		return nil
	})
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in template.GetTemplate")
		return t, errors.InternalServerError("")
	}
	if doc.Err() == redis.Nil {
		return t, errors.NotFound("Template not found")
	}
	if mrsherr := json.Unmarshal([]byte(doc.Val()), &t); mrsherr != nil {
		logger.WithCtx(ctx).Error().Err(mrsherr).Msg("Couldn't unmarshal template in template.GetTemplate")
		return t, errors.InternalServerError("")
	}
	// Missing until the template is used for the first time
	t.UsageCount, _ = usage.Int64()
	return t, nil
}

// Returns the union of the public index and the user's own templates.
func (r repository) ListTemplateIDs(ctx context.Context, logger log.Logger, username string) ([]string, error) {
	ids, dberr := r.db.Client().SUnion(ctx, publicIndexKey, userIndexKey(username)).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SUnion() in template.ListTemplateIDs")
		return nil, errors.InternalServerError("")
	}
	return ids, nil
}

// Returns nil if the template got overwritten, 404 if it was deleted meanwhile.
func (r repository) UpdateTemplate(ctx context.Context, logger log.Logger, t entity.Template) error {
	doc, mrsherr := marshal(t)
	if mrsherr != nil {
		logger.WithCtx(ctx).Error().Err(mrsherr).Msg("Couldn't marshal template in template.UpdateTemplate")
		return errors.InternalServerError("")
	}
	key := templateKey(t.ID)
	txferr := r.db.Transaction(ctx, func(tx *redis.Tx) error {
		available, dberr := tx.Exists(ctx, key).Result()
		if dberr != nil {
			return dberr
		} else if available == 0 {
			return errors.NotFound("Template not found")
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			save(ctx, pipe, t, doc)
			return nil
		})
		return dberr
	}, key)
	if txferr != nil {
		if err, ok := txferr.(errors.ErrorResponse); ok {
			return err
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in template.UpdateTemplate transaction")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns nil once the template and everything pointing at it are gone.
func (r repository) DeleteTemplate(ctx context.Context, logger log.Logger, t entity.Template) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, templateKey(t.ID))
		pipe.SRem(ctx, publicIndexKey, t.ID)
		if t.CreatedBy != "" {
			pipe.SRem(ctx, userIndexKey(t.CreatedBy), t.ID)
		}
		pipe.HDel(ctx, usageKey, t.ID)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in template.DeleteTemplate")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns the new usage count of template id.
func (r repository) IncrUsage(ctx context.Context, logger log.Logger, id string) (int64, error) {
	count, dberr := r.db.Client().HIncrBy(ctx, usageKey, id, 1).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HIncrBy() in template.IncrUsage")
		return 0, errors.InternalServerError("")
	}
	return count, nil
}

// Every instance may try to seed on startup, SETNX lets exactly one of them do it.
func (r repository) SeedTemplates(ctx context.Context, logger log.Logger, templates []entity.Template) (bool, error) {
	first, dberr := r.db.Client().SetNX(ctx, seededKey, len(templates), 0).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SetNX() in template.SeedTemplates")
		return false, errors.InternalServerError("")
	}
	if !first {
		return false, nil
	}
	for _, t := range templates {
		if err := r.CreateTemplate(ctx, logger, t); err != nil {
			return false, err
		}
	}
	return true, nil
}
