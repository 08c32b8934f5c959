// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/jobloop"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/plantgen/internal/core"
)

// BroadcastJob is a jobloop.CronJob.
//
// It polls the weekly broadcast schedule and notifies all clustered users
// that fresh recommendations are available.
func (c *Collector) BroadcastJob(registerer prometheus.Registerer) jobloop.Job {
	return (&jobloop.CronJob{
		Metadata: jobloop.JobMetadata{
			ReadableName: "recommendation broadcast",
			CounterOpts: prometheus.CounterOpts{
				Name: "plantgen_recommendation_broadcasts",
				Help: "Counts weekly recommendation broadcasts.",
			},
		},
		Interval: 15 * time.Minute,
		Task:     c.broadcastIfScheduled,
	}).Setup(registerer)
}

func (c *Collector) broadcastIfScheduled(ctx context.Context, _ prometheus.Labels) error {
	now := c.TimeNow()
	if c.lastBroadcast.IsZero() {
		// slots that predate process startup count as covered
		c.lastBroadcast = now
		return nil
	}
	slot := mostRecentWeeklySlot(now, time.Weekday(*c.Config.Schedule.BroadcastWeekday), c.Config.Schedule.BroadcastHour)
	if !c.lastBroadcast.Before(slot) {
		return nil // slot already covered
	}
	err := c.RunBroadcast(ctx)
	if err != nil {
		// leave the slot uncovered so the next poll retries
		return err
	}
	c.lastBroadcast = now
	return nil
}

// RunBroadcast notifies every user with a cluster assignment and a device
// token. Users without a trained model assignment are skipped silently;
// delivery failures are logged and counted but do not abort the broadcast.
func (c *Collector) RunBroadcast(ctx context.Context) error {
	if c.Models.Current() == nil {
		logg.Info("skipping recommendation broadcast: no trained cluster model yet")
		return nil
	}

	users, err := c.Store.ListUsers(ctx)
	if err != nil {
		return err
	}

	notified, failed := c.notifyUsers(ctx, users,
		"Nuevas recomendaciones de huertos",
		"Tu comunidad tiene nuevos huertos que podrían interesarte.",
		map[string]string{"type": "weekly_recommendations"})
	logg.Info("recommendation broadcast done: %d notified, %d failed", notified, failed)
	return nil
}

// NotifyCluster notifies all members of one cluster. It backs the manual
// notification endpoint of the API.
func (c *Collector) NotifyCluster(ctx context.Context, clusterID int, title, body string) (notified, failed int, err error) {
	users, err := c.Store.ListUsers(ctx)
	if err != nil {
		return 0, 0, err
	}

	var members []core.UserRecord
	for _, user := range users {
		if user.ClusterID != nil && *user.ClusterID == clusterID {
			members = append(members, user)
		}
	}

	notified, failed = c.notifyUsers(ctx, members, title, body,
		map[string]string{"type": "cluster_notification", "clusterId": fmt.Sprint(clusterID)})
	return notified, failed, nil
}

func (c *Collector) notifyUsers(ctx context.Context, users []core.UserRecord, title, body string, data map[string]string) (notified, failed int) {
	for _, user := range users {
		if user.ClusterID == nil {
			continue
		}
		token := user.PushToken()
		if token == "" {
			continue
		}
		err := c.Pusher.Send(ctx, token, title, body, data)
		if err != nil {
			c.LogError("cannot notify user %s: %s", user.ID, err.Error())
			failed++
			continue
		}
		notified++
	}
	return notified, failed
}
