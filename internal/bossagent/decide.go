package bossagent

// defaultWhitelist is every task type the Boss Agent will consider
// delegating, excluding TaskOther: an unclassifiable task is never
// automatically handed to the external runner.
var defaultWhitelist = map[TaskType]bool{ //nolint:gochecknoglobals // decision table
	TaskBugFix:   true,
	TaskFeature:  true,
	TaskRefactor: true,
	TaskTest:     true,
	TaskDocs:     true,
	TaskReview:   true,
	TaskPerf:     true,
}

// Decide turns a Classification into a delegate/don't-delegate call and a
// strategy. threshold is the minimum complexity that qualifies for
// delegation; whitelist narrows eligible task types. A nil whitelist falls
// back to defaultWhitelist.
func Decide(c Classification, threshold int, whitelist map[TaskType]bool) Decision {
	if whitelist == nil {
		whitelist = defaultWhitelist
	}

	delegate := c.Complexity >= threshold && whitelist[c.TaskType]
	if !delegate {
		return Decision{Delegate: false, Strategy: StrategyDirect}
	}
	return Decision{Delegate: true, Strategy: StrategyCodegen}
}
