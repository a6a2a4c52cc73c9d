package model

// MergeOrder is the fixed order in which merge role groups are
// processed: the main contract lays the base terms, override documents
// amend them, broker pages backfill contact details last. The selector
// and the merge engine both key off this table so the two never drift.
var MergeOrder = []PageRole{
	RoleMainContract,
	RoleCounterOffer,
	RoleAddendum,
	RoleBrokerInfo,
}

// rolePriority ranks how strongly a role's values override values
// already merged from another role. A candidate replaces an existing
// value only when its priority is greater than or equal to the
// priority of the value's source role; lower-priority roles may still
// backfill fields that are null. Later, more specific documents
// (counters, addenda) therefore win over the main contract, while
// broker pages never displace negotiated terms.
var rolePriority = map[PageRole]int{
	RoleMainContract:       1,
	RoleBrokerInfo:         1,
	RoleCounterOffer:       2,
	RoleAddendum:           3,
	RoleLocalAddendum:      3,
	RoleContingencyRelease: 4,
}

// RolePriority returns the override priority for a role. Unknown roles
// rank below every known role.
func RolePriority(r PageRole) int {
	return rolePriority[r]
}

// MergeGroup maps a page role to the group it merges under. Local
// addenda and contingency releases are override documents without their
// own slot in MergeOrder; they process with the addendum group.
func MergeGroup(r PageRole) PageRole {
	switch r {
	case RoleLocalAddendum, RoleContingencyRelease:
		return RoleAddendum
	default:
		return r
	}
}
