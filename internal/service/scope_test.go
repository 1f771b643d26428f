package service

import (
	"errors"
	"testing"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/repository"
)

func TestScopeResolverByRole(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	resolver := NewScopeResolver(repository.NewTenantRepository(fx.db), repository.NewMerchantRepository(fx.db))

	super, err := resolver.Resolve(&identity.Identity{Role: constants.RoleSuperAdmin, Email: "root@bluboy.in"})
	if err != nil || !super.Unrestricted || super.Filter().Restricted {
		t.Fatalf("super admin should be unrestricted: %+v %v", super, err)
	}

	tenant, err := resolver.Resolve(&identity.Identity{Role: constants.RoleTenantMarketingAdmin, TenantCodes: []string{"BLUIND"}})
	if err != nil {
		t.Fatalf("tenant scope failed: %v", err)
	}
	if !tenant.AllowsTenant(fx.tenant.ID) || !tenant.AllowsMerchant(fx.merchant.ID) || !tenant.AllowsMerchant(fx.other.ID) {
		t.Fatalf("tenant admin should see all tenant merchants: %+v", tenant)
	}

	merchant, err := resolver.Resolve(&identity.Identity{Role: constants.RoleMerchantAdmin, MerchantCodes: []string{"CCD"}})
	if err != nil {
		t.Fatalf("merchant scope failed: %v", err)
	}
	if !merchant.AllowsMerchant(fx.merchant.ID) || merchant.AllowsMerchant(fx.other.ID) || merchant.AllowsTenant(fx.tenant.ID) {
		t.Fatalf("merchant admin should only see its merchant: %+v", merchant)
	}

	if _, err := resolver.Resolve(&identity.Identity{Role: "AUDITOR"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("unknown role want ErrInvalidRole got %v", err)
	}
	if _, err := resolver.Resolve(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("nil identity want ErrForbidden got %v", err)
	}
}

func TestUnresolvedCodesYieldEmptyScope(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	resolver := NewScopeResolver(repository.NewTenantRepository(fx.db), repository.NewMerchantRepository(fx.db))
	scope, err := resolver.Resolve(&identity.Identity{Role: constants.RoleMerchantAdmin, MerchantCodes: []string{"ZZZ"}})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(scope.MerchantIDs) != 0 || !scope.Filter().Restricted {
		t.Fatalf("unknown codes must yield an empty restricted scope: %+v", scope)
	}
}
