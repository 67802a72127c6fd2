package orm

import "fmt"

// MergeTenantPredicate returns a new filter sequence made of filters without
// any predicate on tenant_id, followed by tenant_id = tenantID.
// The system value always wins over a caller predicate on the same column and
// the caller's slice is left untouched.
// Usage:
//
//	scoped := orm.MergeTenantPredicate(orm.Where(orm.Eq("name", "x")), tenant.ID)
//	// "name" = $1 AND "tenant_id" = $2
func MergeTenantPredicate(filters Filters, tenantID interface{}) Filters {
	return filters.Without(TenantColumn).And(Eq(TenantColumn, tenantID))
}

// scopeSelect applies the tenant policy to a read.
func scopeSelect(q SelectQuery) (Filters, error) {
	if !q.TenantScoped {
		return q.Filters, nil
	}
	if q.TenantID <= 0 {
		return nil, fmt.Errorf("%w: tenant-scoped select on %s", ErrMissingTenantID, q.Table)
	}
	return MergeTenantPredicate(q.Filters, q.TenantID), nil
}

// scopeUpdate applies the tenant policy to an update. The tenant value is
// taken from the payload, so a row can only be updated by its own tenant and
// the statement cannot move it to another tenant.
func scopeUpdate(q UpdateQuery) (Filters, error) {
	if !q.TenantScoped {
		return q.Filters, nil
	}
	v, ok := q.Data.Get(TenantColumn)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: tenant-scoped update on %s", ErrMissingTenantID, q.Table)
	}
	return MergeTenantPredicate(q.Filters, v), nil
}

// scopeDelete applies the tenant policy to a delete. The caller must supply
// the tenant as an equality predicate, which is moved to the end.
func scopeDelete(q DeleteQuery) (Filters, error) {
	if !q.TenantScoped {
		return q.Filters, nil
	}
	p, ok := q.Filters.Find(TenantColumn)
	if !ok || p.Operator != OpEqual || p.Value == nil {
		return nil, fmt.Errorf("%w: tenant-scoped delete on %s", ErrMissingTenantID, q.Table)
	}
	return MergeTenantPredicate(q.Filters, p.Value), nil
}
