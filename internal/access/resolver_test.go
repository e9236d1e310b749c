package access_test

import (
	"github.com/frahmantamala/expense-tracker/internal/access"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolver", func() {
	var resolver *access.Resolver

	BeforeEach(func() {
		resolver = access.NewResolver([]string{"Owner@Example.com", " ops@example.com "})
	})

	Describe("IsDefaultAdmin", func() {
		It("matches the allow-list case-insensitively", func() {
			Expect(resolver.IsDefaultAdmin("owner@example.com")).To(BeTrue())
			Expect(resolver.IsDefaultAdmin("OPS@EXAMPLE.COM")).To(BeTrue())
			Expect(resolver.IsDefaultAdmin("someone@example.com")).To(BeFalse())
			Expect(resolver.IsDefaultAdmin("")).To(BeFalse())
		})
	})

	Describe("with an empty permission table", func() {
		DescribeTable("area access equals default-admin membership",
			func(email string, area access.Area) {
				Expect(resolver.HasAreaAccess(email, area, nil)).To(Equal(resolver.IsDefaultAdmin(email)))
				Expect(resolver.HasAreaAccess(email, area, []access.AccessControlUser{})).To(Equal(resolver.IsDefaultAdmin(email)))
			},
			Entry("default admin, review", "owner@example.com", access.AreaReview),
			Entry("default admin, approve", "ops@example.com", access.AreaApprove),
			Entry("default admin, accounts", "owner@example.com", access.AreaAccounts),
			Entry("stranger, review", "stranger@example.com", access.AreaReview),
			Entry("stranger, approve", "stranger@example.com", access.AreaApprove),
			Entry("stranger, accounts", "stranger@example.com", access.AreaAccounts),
		)

		It("denies admin access to unknown emails", func() {
			Expect(resolver.HasAdminAccess("stranger@example.com", nil)).To(BeFalse())
		})
	})

	Describe("with conflicting records for allow-listed emails", func() {
		var users []access.AccessControlUser

		BeforeEach(func() {
			users = []access.AccessControlUser{
				{Email: "owner@example.com", AccessRights: access.AccessRightsEntry},
				{Email: "OPS@example.com", AccessRights: access.AccessRightsEntry, AreaOfRights: access.AreaOfRights{}},
			}
		})

		It("still grants admin and every area", func() {
			for _, email := range []string{"owner@example.com", "ops@example.com"} {
				Expect(resolver.HasAdminAccess(email, users)).To(BeTrue())
				for _, area := range access.Areas {
					Expect(resolver.HasAreaAccess(email, area, users)).To(BeTrue())
				}
			}
		})
	})

	Describe("area flags", func() {
		var users []access.AccessControlUser

		BeforeEach(func() {
			users = []access.AccessControlUser{
				{Email: "reviewer@example.com", AccessRights: access.AccessRightsEntry, AreaOfRights: access.AreaOfRights{Review: true}},
				{Email: "manager@example.com", AccessRights: access.AccessRightsAdmin},
				{Email: "Accountant@Example.com", AccessRights: access.AccessRightsEntry, AreaOfRights: access.AreaOfRights{Accounts: true}},
			}
		})

		It("are independent of the admin/entry tier", func() {
			// Given an entry user holding review
			// When checking each area
			// Then only review is granted
			Expect(resolver.HasAreaAccess("reviewer@example.com", access.AreaReview, users)).To(BeTrue())
			Expect(resolver.HasAreaAccess("reviewer@example.com", access.AreaApprove, users)).To(BeFalse())
			Expect(resolver.HasAdminAccess("reviewer@example.com", users)).To(BeFalse())
		})

		It("are not implied by the admin tier", func() {
			Expect(resolver.HasAdminAccess("manager@example.com", users)).To(BeTrue())
			Expect(resolver.HasAreaAccess("manager@example.com", access.AreaReview, users)).To(BeFalse())
		})

		It("match record emails case-insensitively", func() {
			Expect(resolver.HasAreaAccess("accountant@example.com", access.AreaAccounts, users)).To(BeTrue())
		})

		It("summarizes rights", func() {
			rights := resolver.Rights("Reviewer@example.com", users)
			Expect(rights.Email).To(Equal("reviewer@example.com"))
			Expect(rights.DefaultAdmin).To(BeFalse())
			Expect(rights.Admin).To(BeFalse())
			Expect(rights.Areas).To(Equal(access.AreaOfRights{Review: true}))
			Expect(rights.CanSeeAll()).To(BeTrue())

			Expect(resolver.Rights("nobody@example.com", users).CanSeeAll()).To(BeFalse())
		})
	})

	Describe("ParseArea", func() {
		It("accepts the three areas", func() {
			for _, name := range []string{"review", "approve", "accounts"} {
				area, err := access.ParseArea(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(area)).To(Equal(name))
			}
		})

		It("rejects anything else", func() {
			_, err := access.ParseArea("payroll")
			Expect(err).To(Equal(access.ErrInvalidArea))
		})
	})
})
