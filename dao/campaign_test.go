package dao

import (
	"testing"
	"time"

	"github.com/salonbook/notifier/model"
	"github.com/stretchr/testify/require"
)

func TestCampaignDao_CreateDefaults(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	dao := NewCampaignDao(db)

	c := &model.Campaign{Name: "spring promo", Body: "20% off this week"}
	err := dao.Create(c)

	require.NoError(t, err)
	require.NotZero(t, c.Id)
	require.Equal(t, model.CampaignDraft, c.Status)
	require.False(t, c.CreatedAt.IsZero())
}

func TestCampaignDao_GetDue(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	dao := NewCampaignDao(db)

	now := time.Now()
	past := &model.Campaign{Name: "past", Body: "b", Status: model.CampaignScheduled, ScheduledFor: now.Add(-time.Minute)}
	future := &model.Campaign{Name: "future", Body: "b", Status: model.CampaignScheduled, ScheduledFor: now.Add(time.Hour)}
	draft := &model.Campaign{Name: "draft", Body: "b", Status: model.CampaignDraft, ScheduledFor: now.Add(-time.Minute)}
	for _, c := range []*model.Campaign{past, future, draft} {
		require.NoError(t, dao.Create(c))
	}

	due, err := dao.GetDue(now)

	require.NoError(t, err)
	require.Equal(t, 1, len(due))
	require.Equal(t, past.Id, due[0].Id)
}

func TestCampaignDao_GetDueEmpty(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	dao := NewCampaignDao(db)

	due, err := dao.GetDue(time.Now())

	require.NoError(t, err)
	require.Empty(t, due)
}

func TestCampaignDao_Update(t *testing.T) {
	db, cleanup := createDB(t)
	defer cleanup()
	dao := NewCampaignDao(db)

	c := &model.Campaign{Name: "promo", Body: "b", Status: model.CampaignScheduled, ScheduledFor: time.Now()}
	require.NoError(t, dao.Create(c))

	c.Status = model.CampaignCompleted
	c.SentCount = 12
	require.NoError(t, dao.Update(c))

	got, err := dao.GetOneById(c.Id)
	require.NoError(t, err)
	require.Equal(t, model.CampaignCompleted, got.Status)
	require.Equal(t, 12, got.SentCount)
}
