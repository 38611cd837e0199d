package inbox

import "fmt"

// Message constructors for the procurement workflows. Each returns a
// Message ready to hand to AddMessage; id, timestamp and read state are
// assigned there.

// EOIConfirmation acknowledges a submitted expression of interest.
func EOIConfirmation(tenderID, tenderTitle string) Message {
	return Message{
		Type:     "eoi_confirmed",
		Category: CategorySuccess,
		Title:    "Expression of Interest Received",
		Message:  fmt.Sprintf("Your expression of interest for %q has been received and is under review.", tenderTitle),
		Actions: []Action{
			{Label: "View Tender", URL: "/tenders/" + tenderID},
		},
		Metadata: map[string]string{"tenderId": tenderID},
	}
}

// BidConfirmation acknowledges a submitted bid.
func BidConfirmation(tenderID, tenderTitle, bidID string) Message {
	return Message{
		Type:     "bid_confirmed",
		Category: CategorySuccess,
		Title:    "Bid Submitted",
		Message:  fmt.Sprintf("Your bid for %q has been submitted. Reference: %s.", tenderTitle, bidID),
		Actions: []Action{
			{Label: "View Bid", URL: "/bids/" + bidID},
			{Label: "View Tender", URL: "/tenders/" + tenderID},
		},
		Metadata: map[string]string{"tenderId": tenderID, "bidId": bidID},
	}
}

// TenderStatusUpdate informs a watcher that a tender changed status.
// Awarded tenders are urgent; everything else is informational.
func TenderStatusUpdate(tenderID, tenderTitle, oldStatus, newStatus string) Message {
	category := CategoryInfo
	if newStatus == "awarded" {
		category = CategoryUrgent
	}
	return Message{
		Type:     "tender_status",
		Category: category,
		Title:    "Tender Status Changed",
		Message:  fmt.Sprintf("%q moved from %s to %s.", tenderTitle, oldStatus, newStatus),
		Actions: []Action{
			{Label: "View Tender", URL: "/tenders/" + tenderID},
		},
		Metadata: map[string]string{
			"tenderId":  tenderID,
			"oldStatus": oldStatus,
			"newStatus": newStatus,
		},
	}
}

// BidReceived notifies the owning MDA that a new bid arrived.
func BidReceived(tenderID, tenderTitle, companyName string) Message {
	return Message{
		Type:     "bid_received",
		Category: CategoryInfo,
		Title:    "New Bid Received",
		Message:  fmt.Sprintf("%s submitted a bid for %q.", companyName, tenderTitle),
		Actions: []Action{
			{Label: "Review Bids", URL: "/tenders/" + tenderID + "/bids"},
		},
		Metadata: map[string]string{"tenderId": tenderID, "company": companyName},
	}
}
