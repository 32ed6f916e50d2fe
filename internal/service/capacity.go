package service

import (
	"context"
	"fmt"

	"interviewsched/internal/models"
)

// CapacityChecker enforces the per-interviewer weekly interview cap.
// Check must run after the slot being booked is locked; otherwise the count is racy.
type CapacityChecker struct {
	slots     SlotStore
	directory Directory
}

func NewCapacityChecker(slots SlotStore, directory Directory) *CapacityChecker {
	return &CapacityChecker{slots: slots, directory: directory}
}

// Check fails with ErrMaxInterviewsExceeded when the slot's interviewer is at capacity
// for the slot's week bucket.
func (c *CapacityChecker) Check(ctx context.Context, slot *models.Slot) error {
	interviewer, err := c.directory.GetInterviewer(ctx, slot.InterviewerID)
	if err != nil {
		return err
	}

	count, err := c.slots.CountActiveSlotsForWeek(ctx, slot.InterviewerID, slot.WeekNumber, slot.Year)
	if err != nil {
		return err
	}

	if count >= interviewer.MaxInterviewsPerWeek {
		return fmt.Errorf("%w: interviewer %d has %d of %d interviews in week %d/%d",
			models.ErrMaxInterviewsExceeded, slot.InterviewerID, count, interviewer.MaxInterviewsPerWeek, slot.WeekNumber, slot.Year)
	}
	return nil
}
