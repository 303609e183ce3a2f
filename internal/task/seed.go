package task

import "time"

// 种子任务用于让新部署的目录页不至于一片空白。
// 持久化存储中的同 ID 记录优先于种子。
func seedTasks(now time.Time) []*Task {
	now = now.UTC()
	summary1 := "Market scan finished: 3 emerging vector database vendors identified, full report attached to the workspace."
	summary2 := "Weekly digest drafted and queued for review. Highlights cover the new orchestration release and two community demos."

	return []*Task{
		{
			ID:        "seed-research-001",
			AgentID:   "atlas-researcher",
			AgentName: "Atlas Researcher",
			Message:   "Scan the market for emerging vector database vendors and summarize the top entrants.",
			UserID:    "demo",
			Status:    StatusCompleted,
			Response:  &summary1,
			CreatedAt: now.Add(-48 * time.Hour),
			UpdatedAt: now.Add(-47 * time.Hour),
		},
		{
			ID:        "seed-digest-002",
			AgentID:   "scribe-writer",
			AgentName: "Scribe Writer",
			Message:   "Draft the weekly product digest from this week's changelog.",
			UserID:    "demo",
			Status:    StatusCompleted,
			Response:  &summary2,
			CreatedAt: now.Add(-24 * time.Hour),
			UpdatedAt: now.Add(-23 * time.Hour),
		},
		{
			ID:        "seed-monitor-003",
			AgentID:   "sentinel-monitor",
			AgentName: "Sentinel Monitor",
			Message:   "Watch the status page and alert the channel if uptime drops below 99.9%.",
			UserID:    "demo",
			Status:    StatusPending,
			CreatedAt: now.Add(-2 * time.Hour),
			UpdatedAt: now.Add(-2 * time.Hour),
		},
	}
}

// mergeWithSeeds 将种子任务并入列表结果，按 ID 去重，
// 持久化记录优先。返回结果保持最新在前的排序。
func mergeWithSeeds(persisted []*Task, seeds []*Task, opts ListOptions) []*Task {
	seen := make(map[string]struct{}, len(persisted))
	merged := make([]*Task, 0, len(persisted)+len(seeds))
	for _, t := range persisted {
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	for _, seed := range seeds {
		if _, ok := seen[seed.ID]; ok {
			continue
		}
		if !matchesListFilters(seed, opts) {
			continue
		}
		merged = append(merged, seed.Clone())
	}
	sortNewestFirst(merged)
	if len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}
	return merged
}
