package loan

import (
	"fmt"
	"strings"
)

// renderAgreement produces the textual agreement snapshot stored on the loan.
// It is regenerated on every edit so the snapshot always matches the terms
// under which acceptance was sought.
func renderAgreement(lenderName string, e *Entity) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "LOAN AGREEMENT\n\n")
	if lenderName != "" {
		fmt.Fprintf(b, "Lender: %s\n", lenderName)
	}
	fmt.Fprintf(b, "Borrower: %s (ID %s)\n", e.BorrowerName, e.IDNumber)
	fmt.Fprintf(b, "Contact: %s, %s\n", e.Mobile, e.Address)
	fmt.Fprintf(b, "Principal: Rs. %d\n", e.Amount)
	if e.Purpose != "" {
		fmt.Fprintf(b, "Purpose: %s\n", e.Purpose)
	}
	fmt.Fprintf(b, "Given on: %s\n", e.GivenDate.Format("02 Jan 2006"))
	fmt.Fprintf(b, "Due by: %s\n", e.EndDate.Format("02 Jan 2006"))
	fmt.Fprintf(b, "Disbursement: %s\n", e.DisbursementMode)
	if e.PaymentType == TypeInstallment && e.Installments != nil {
		fmt.Fprintf(b, "Repayment: %d %s installments of Rs. %d\n",
			e.Installments.TotalInstallments, e.Installments.Frequency, e.Installments.AmountPerPeriod)
	} else {
		fmt.Fprintf(b, "Repayment: one-time\n")
	}
	fmt.Fprintf(b, "\nThe borrower agrees to repay the full principal by the due date.\n")
	return b.String()
}
