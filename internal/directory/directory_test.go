package directory

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mmeshcher/couponboard/internal/model"
)

func makeCoupon(title, code, description string, approved bool) model.Coupon {
	return model.Coupon{
		ID:          uuid.New(),
		Title:       title,
		Code:        code,
		Description: description,
		Approved:    approved,
	}
}

func TestApplyApprovedOnly(t *testing.T) {
	list := []model.Coupon{
		makeCoupon("10% Off", "SAVE10", "", true),
		makeCoupon("Hidden", "SECRET", "", false),
		makeCoupon("20% Off", "SAVE20", "", true),
	}

	res := Apply(list, NewCriteria())

	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2", res.Total)
	}
	for _, c := range res.Coupons {
		if !c.Approved {
			t.Fatalf("unapproved coupon %q leaked into the result", c.Title)
		}
	}
}

func TestApplySearchConjunctive(t *testing.T) {
	list := []model.Coupon{
		// Термин есть и в заголовке, и в коде.
		makeCoupon("SAVE big today", "SAVE10", "", true),
		// Термин только в заголовке — должен быть исключён.
		makeCoupon("save on shoes", "SHOES20", "", true),
		// Термин в заголовке и коде, описание без термина — исключён.
		makeCoupon("mega SAVE", "XSAVE", "unrelated text", true),
	}

	c := NewCriteria()
	c.Search = "save"
	res := Apply(list, c)

	if res.Total != 1 {
		t.Fatalf("Total = %d, want 1: %+v", res.Total, res.Coupons)
	}
	if res.Coupons[0].Code != "SAVE10" {
		t.Fatalf("matched coupon = %q, want SAVE10", res.Coupons[0].Code)
	}
}

func TestApplySearchCaseInsensitive(t *testing.T) {
	list := []model.Coupon{
		makeCoupon("WinterSale", "WINTERSALE", "wintersale deals", true),
	}

	c := NewCriteria()
	c.Search = "WiNtEr"
	res := Apply(list, c)

	if res.Total != 1 {
		t.Fatalf("case-insensitive match failed, Total = %d", res.Total)
	}
}

func TestApplyEmptyDescriptionMatchesVacuously(t *testing.T) {
	list := []model.Coupon{
		makeCoupon("promo deal", "PROMO1", "", true),
	}

	c := NewCriteria()
	c.Search = "promo"
	res := Apply(list, c)

	if res.Total != 1 {
		t.Fatalf("coupon without description must match on title+code, Total = %d", res.Total)
	}
}

func TestApplySelectorFilters(t *testing.T) {
	mk := func(category, country, brand string) model.Coupon {
		c := makeCoupon("t", "t", "", true)
		c.Category = category
		c.Country = country
		c.Brand = brand
		return c
	}

	list := []model.Coupon{
		mk("Gaming", "Turkey", "Steam"),
		mk("Gaming", "USA", "Steam"),
		mk("Fashion", "Turkey", "Zara"),
	}

	tests := []struct {
		name     string
		category string
		country  string
		brand    string
		want     int
	}{
		{name: "no filters", want: 3},
		{name: "category", category: "Gaming", want: 2},
		{name: "country", country: "Turkey", want: 2},
		{name: "country sentinel bypasses filter", country: CountryAll, want: 3},
		{name: "brand", brand: "Zara", want: 1},
		{name: "combined", category: "Gaming", country: "USA", brand: "Steam", want: 1},
		{name: "no matches", category: "Fashion", country: "USA", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCriteria()
			c.Category = tt.category
			c.Country = tt.country
			c.Brand = tt.brand

			if res := Apply(list, c); res.Total != tt.want {
				t.Fatalf("Total = %d, want %d", res.Total, tt.want)
			}
		})
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	list := []model.Coupon{
		makeCoupon("newest", "C1", "", true),
		makeCoupon("middle", "C2", "", true),
		makeCoupon("oldest", "C3", "", true),
	}

	res := Apply(list, NewCriteria())

	for i, want := range []string{"newest", "middle", "oldest"} {
		if res.Coupons[i].Title != want {
			t.Fatalf("order changed: position %d = %q, want %q", i, res.Coupons[i].Title, want)
		}
	}
}

func TestApplyPaginationPartition(t *testing.T) {
	var list []model.Coupon
	for i := 0; i < 25; i++ {
		list = append(list, makeCoupon("coupon", "CODE", "", true))
	}

	c := NewCriteria()
	c.SetPageSize(10)

	seen := make(map[uuid.UUID]bool)
	for page := 1; page <= 3; page++ {
		c.SetPage(page)
		res := Apply(list, c)

		wantLen := 10
		if page == 3 {
			wantLen = 5
		}
		if len(res.Coupons) != wantLen {
			t.Fatalf("page %d: len = %d, want %d", page, len(res.Coupons), wantLen)
		}
		if res.TotalPages != 3 {
			t.Fatalf("page %d: TotalPages = %d, want 3", page, res.TotalPages)
		}

		for _, coupon := range res.Coupons {
			if seen[coupon.ID] {
				t.Fatalf("coupon %s appeared on more than one page", coupon.ID)
			}
			seen[coupon.ID] = true
		}
	}

	if len(seen) != 25 {
		t.Fatalf("pages cover %d coupons, want all 25", len(seen))
	}
}

func TestApplyPageBeyondLast(t *testing.T) {
	list := []model.Coupon{
		makeCoupon("only", "ONE", "", true),
	}

	c := NewCriteria()
	c.SetPageSize(10)
	c.SetPage(7)

	res := Apply(list, c)
	if len(res.Coupons) != 0 {
		t.Fatalf("page beyond the last must be empty, got %d coupons", len(res.Coupons))
	}
	if res.Total != 1 {
		t.Fatalf("Total = %d, want 1", res.Total)
	}
}

func TestApplyEmptyList(t *testing.T) {
	res := Apply(nil, NewCriteria())

	if res.Total != 0 {
		t.Fatalf("Total = %d, want 0", res.Total)
	}
	if res.TotalPages != 0 {
		t.Fatalf("TotalPages = %d, want 0 for an empty set", res.TotalPages)
	}
	if len(res.Coupons) != 0 {
		t.Fatalf("empty input must produce an empty page")
	}
}

func TestSetPageSizeResetsPage(t *testing.T) {
	c := NewCriteria()
	c.SetPage(5)

	c.SetPageSize(20)

	if c.Page != 1 {
		t.Fatalf("Page after SetPageSize = %d, want 1", c.Page)
	}
	if c.PageSize != 20 {
		t.Fatalf("PageSize = %d, want 20", c.PageSize)
	}
}

func TestSetPageClampsToOne(t *testing.T) {
	c := NewCriteria()
	c.SetPage(0)
	if c.Page != 1 {
		t.Fatalf("Page = %d, want 1", c.Page)
	}
	c.SetPage(-3)
	if c.Page != 1 {
		t.Fatalf("Page = %d, want 1", c.Page)
	}
}
