// Package billing holds subscription plans and payment provider integration.
package billing

// Plan names as stored on the user record.
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Limits describes what a plan allows. -1 means unlimited.
type Limits struct {
	MaxWebsites     int
	MaxPages        int
	MaxProducts     int
	CanSellProducts bool
	CanUseRevisions bool
}

var planLimits = map[string]Limits{
	PlanFree: {
		MaxWebsites:     1,
		MaxPages:        3,
		MaxProducts:     0,
		CanSellProducts: false,
		CanUseRevisions: false,
	},
	PlanPro: {
		MaxWebsites:     3,
		MaxPages:        20,
		MaxProducts:     50,
		CanSellProducts: true,
		CanUseRevisions: true,
	},
	PlanBusiness: {
		MaxWebsites:     -1,
		MaxPages:        -1,
		MaxProducts:     -1,
		CanSellProducts: true,
		CanUseRevisions: true,
	},
}

// LimitsFor returns the limits for a plan. Unknown plans get free limits.
func LimitsFor(plan string) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// ValidPlan reports whether the name is a known plan.
func ValidPlan(plan string) bool {
	_, ok := planLimits[plan]
	return ok
}

// CanCreateWebsite checks the plan's website quota against the current count.
func CanCreateWebsite(plan string, current int) bool {
	return withinLimit(LimitsFor(plan).MaxWebsites, current)
}

// CanAddPage checks the plan's per-site page quota.
func CanAddPage(plan string, current int) bool {
	return withinLimit(LimitsFor(plan).MaxPages, current)
}

// CanAddProduct checks the plan's per-site product quota. Plans without
// commerce always refuse.
func CanAddProduct(plan string, current int) bool {
	limits := LimitsFor(plan)
	if !limits.CanSellProducts {
		return false
	}
	return withinLimit(limits.MaxProducts, current)
}

func withinLimit(limit, current int) bool {
	if limit < 0 {
		return true
	}
	return current < limit
}
