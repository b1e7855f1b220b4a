package reconcile_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/reconcile"
)

func openIssue(number int) model.CanonicalIssue {
	alice := "alice"
	return model.CanonicalIssue{
		Organization:      "Acme",
		Repository:        "widgets",
		Number:            number,
		Title:             "Parser crashes",
		Body:              "Steps to reproduce",
		HTMLURL:           fmt.Sprintf("https://github.com/Acme/widgets/issues/%d", number),
		State:             model.IssueStateOpen,
		Milestoned:        true,
		RepoHasMilestones: true,
		Assignee:          &alice,
	}
}

var _ = Describe("ShouldCreateTask", func() {
	DescribeTable("decides from state, kind, milestones and assignee",
		func(mutate func(i *model.CanonicalIssue), expected bool) {
			issue := openIssue(1)
			mutate(&issue)
			Expect(reconcile.ShouldCreateTask(issue)).To(Equal(expected))
		},
		Entry("closed issue", func(i *model.CanonicalIssue) { i.State = model.IssueStateClosed }, false),
		Entry("closed PR", func(i *model.CanonicalIssue) { i.State = model.IssueStateClosed; i.IsPR = true }, false),
		Entry("open PR without milestone or assignee", func(i *model.CanonicalIssue) {
			i.IsPR = true
			i.Milestoned = false
			i.Assignee = nil
		}, true),
		Entry("unmilestoned, repo has milestones, no assignee", func(i *model.CanonicalIssue) {
			i.Milestoned = false
			i.Assignee = nil
		}, false),
		Entry("unmilestoned, repo has milestones, assigned", func(i *model.CanonicalIssue) {
			i.Milestoned = false
		}, true),
		Entry("unmilestoned, repo without milestones", func(i *model.CanonicalIssue) {
			i.Milestoned = false
			i.RepoHasMilestones = false
			i.Assignee = nil
		}, true),
		Entry("milestoned without assignee", func(i *model.CanonicalIssue) { i.Assignee = nil }, true),
	)
})

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		dest   *fakeDestination
		cache  *reconcile.Cache
		engine *reconcile.Engine
	)

	newEngine := func(policy reconcile.AssigneePolicy) *reconcile.Engine {
		return reconcile.NewEngine(dest, cache, reconcile.Options{
			TrackingTag:    "GitHub",
			DoneSection:    "done",
			AssigneePolicy: policy,
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		dest = newFakeDestination()
		cache = reconcile.NewCache()
		engine = newEngine(reconcile.AssigneeKeepAssigned)
	})

	Describe("creating tasks", func() {
		It("creates a tagged, assigned task for a milestoned open issue", func() {
			result, err := engine.Sync(ctx, openIssue(7))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(reconcile.OutcomeCreated))
			Expect(dest.createdTasks).To(HaveLen(1))

			created := dest.createdTasks[0]
			Expect(created.ExternalID).To(Equal("Acme-widgets-7"))
			Expect(created.Name).To(Equal("Parser crashes (#7)"))
			Expect(created.Notes).To(Equal("https://github.com/Acme/widgets/issues/7\n\nSteps to reproduce"))
			Expect(created.ProjectIDs).To(Equal([]string{"p1"}))
			Expect(created.AssigneeID).To(Equal("u-alice"))
			Expect(created.Completed).To(BeFalse())
			Expect(created.TagIDs).To(HaveLen(1))
			Expect(dest.tags["w1"]).To(ConsistOf(model.Tag{ID: created.TagIDs[0], Name: "GitHub"}))
		})

		It("creates an unassigned task when the source user has no destination account", func() {
			issue := openIssue(8)
			carol := "carol"
			issue.Assignee = &carol

			_, err := engine.Sync(ctx, issue)

			Expect(err).NotTo(HaveOccurred())
			Expect(dest.createdTasks[0].AssigneeID).To(Equal(model.Unassigned))
		})

		It("attempts creation for open PRs regardless of milestones", func() {
			issue := openIssue(9)
			issue.IsPR = true
			issue.Milestoned = false
			issue.Assignee = nil

			result, err := engine.Sync(ctx, issue)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(reconcile.OutcomeCreated))
			Expect(dest.count("CreateTask")).To(Equal(1))
		})

		It("does nothing for unmilestoned unassigned issues in repos with milestones", func() {
			issue := openIssue(10)
			issue.Milestoned = false
			issue.Assignee = nil

			result, err := engine.Sync(ctx, issue)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(reconcile.OutcomeNoop))
			Expect(result.TaskID()).To(BeNil())
			Expect(dest.count("CreateTask")).To(Equal(0))
			Expect(dest.taskCount()).To(Equal(0))
		})
	})

	Describe("idempotence", func() {
		It("returns the same task on repeated syncs without duplicating it", func() {
			first, err := engine.Sync(ctx, openIssue(7))
			Expect(err).NotTo(HaveOccurred())
			second, err := engine.Sync(ctx, openIssue(7))
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Outcome).To(Equal(reconcile.OutcomeCreated))
			Expect(second.Outcome).To(Equal(reconcile.OutcomeUpdated))
			Expect(second.Task.ID).To(Equal(first.Task.ID))
			Expect(dest.taskCount()).To(Equal(1))
		})

		It("survives a fresh cache, as in a restarted process", func() {
			first, err := engine.Sync(ctx, openIssue(7))
			Expect(err).NotTo(HaveOccurred())

			cache.Reset()
			second, err := engine.Sync(ctx, openIssue(7))

			Expect(err).NotTo(HaveOccurred())
			Expect(second.Task.ID).To(Equal(first.Task.ID))
			Expect(dest.taskCount()).To(Equal(1))
		})

		It("falls through to update on a duplicate delivery", func() {
			existing := dest.seedTask("Acme-widgets-7", model.Unassigned, false)

			result, err := engine.Sync(ctx, openIssue(7))

			Expect(err).NotTo(HaveOccurred())
			Expect(dest.count("CreateTask")).To(Equal(1))
			Expect(result.Outcome).To(Equal(reconcile.OutcomeUpdated))
			Expect(result.Task.ID).To(Equal(existing.ID))
			Expect(dest.taskCount()).To(Equal(1))
		})

		It("round-trips the external id through the locator", func() {
			issue := openIssue(42)
			issue.Repository = "Widgets"
			Expect(issue.ExternalID()).To(Equal("Acme-Widgets-42"))

			created, err := engine.Sync(ctx, issue)
			Expect(err).NotTo(HaveOccurred())

			found, ok, err := reconcile.NewLocator(dest).FindTask(ctx, issue)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(found.ID).To(Equal(created.Task.ID))
		})
	})

	Describe("closed entities", func() {
		It("never creates a task for a closed issue without one", func() {
			issue := openIssue(7)
			issue.State = model.IssueStateClosed

			result, err := engine.Sync(ctx, issue)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(reconcile.OutcomeNoop))
			Expect(dest.count("CreateTask")).To(Equal(0))
		})

		It("completes the task and moves it to the done section", func() {
			created, err := engine.Sync(ctx, openIssue(7))
			Expect(err).NotTo(HaveOccurred())

			closed := openIssue(7)
			closed.State = model.IssueStateClosed
			result, err := engine.Sync(ctx, closed)

			Expect(err).NotTo(HaveOccurred())
			Expect(dest.count("CreateTask")).To(Equal(1))
			Expect(result.Outcome).To(Equal(reconcile.OutcomeUpdated))
			Expect(result.Task.Completed).To(BeTrue())
			Expect(result.Moved).To(BeTrue())
			Expect(dest.moves).To(Equal([]string{created.Task.ID + "->s-done"}))
		})

		It("updates without moving when the project has no done section", func() {
			dest.sections["p1"] = []model.Section{{ID: "s-todo", Name: "To do"}}
			dest.seedTask("Acme-widgets-7", model.Unassigned, false)
			closed := openIssue(7)
			closed.State = model.IssueStateClosed

			result, err := engine.Sync(ctx, closed)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(reconcile.OutcomeUpdated))
			Expect(result.Moved).To(BeFalse())
			Expect(dest.count("AddTaskToSection")).To(Equal(0))
		})

		It("does not fail the sync when the move fails", func() {
			dest.seedTask("Acme-widgets-7", model.Unassigned, false)
			dest.addToSectionErr = fmt.Errorf("asana: %w", model.ErrRemoteUnavailable)
			closed := openIssue(7)
			closed.State = model.IssueStateClosed

			result, err := engine.Sync(ctx, closed)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(reconcile.OutcomeUpdated))
			Expect(result.Moved).To(BeFalse())
		})

		It("does not move a task already in the done section", func() {
			t := dest.seedTask("Acme-widgets-7", model.Unassigned, true)
			t.Memberships = []model.Membership{{ProjectID: "p1", SectionID: "s-done"}}
			closed := openIssue(7)
			closed.State = model.IssueStateClosed

			result, err := engine.Sync(ctx, closed)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Moved).To(BeFalse())
			Expect(dest.count("AddTaskToSection")).To(Equal(0))
		})
	})

	Describe("assignee policies", func() {
		closedByBob := func() model.CanonicalIssue {
			issue := openIssue(7)
			bob := "Bob"
			issue.Assignee = &bob
			issue.State = model.IssueStateClosed
			return issue
		}

		It("keeps an existing assignee under keep_assigned", func() {
			dest.seedTask("Acme-widgets-7", "u-alice", false)

			result, err := engine.Sync(ctx, closedByBob())

			Expect(err).NotTo(HaveOccurred())
			Expect(dest.updates).To(HaveLen(1))
			Expect(dest.updates[0].AssigneeID).To(BeNil())
			Expect(dest.updates[0].Completed).To(HaveValue(BeTrue()))
			Expect(result.Task.AssigneeID).To(Equal("u-alice"))
		})

		It("sets the assignee on an unassigned task under keep_assigned", func() {
			dest.seedTask("Acme-widgets-7", model.Unassigned, false)

			result, err := engine.Sync(ctx, closedByBob())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Task.AssigneeID).To(Equal("u-bob"))
		})

		It("overwrites an existing assignee under always", func() {
			engine = newEngine(reconcile.AssigneeAlways)
			dest.seedTask("Acme-widgets-7", "u-alice", false)

			result, err := engine.Sync(ctx, closedByBob())

			Expect(err).NotTo(HaveOccurred())
			Expect(dest.updates[0].AssigneeID).To(HaveValue(Equal("u-bob")))
			Expect(result.Task.AssigneeID).To(Equal("u-bob"))
		})

		It("keeps the assignee of an incomplete task under keep_open_assigned", func() {
			engine = newEngine(reconcile.AssigneeKeepOpenAssigned)
			dest.seedTask("Acme-widgets-7", "u-alice", false)

			result, err := engine.Sync(ctx, closedByBob())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Task.AssigneeID).To(Equal("u-alice"))
		})

		It("reassigns a completed task under keep_open_assigned", func() {
			engine = newEngine(reconcile.AssigneeKeepOpenAssigned)
			dest.seedTask("Acme-widgets-7", "u-alice", true)

			result, err := engine.Sync(ctx, closedByBob())

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Task.AssigneeID).To(Equal("u-bob"))
		})
	})

	Describe("failure handling", func() {
		It("reports an inconsistency when the duplicate cannot be found", func() {
			dest.seedTask("Acme-widgets-7", model.Unassigned, false)
			dest.hideTasks = true

			result, err := engine.Sync(ctx, openIssue(7))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(reconcile.OutcomeInconsistent))
			Expect(dest.count("UpdateTask")).To(Equal(0))
		})

		It("propagates non-duplicate creation errors", func() {
			dest.createErr = fmt.Errorf("asana: %w", model.ErrRemoteUnavailable)

			_, err := engine.Sync(ctx, openIssue(7))

			Expect(err).To(MatchError(model.ErrRemoteUnavailable))
			Expect(dest.count("FindTaskByExternalID")).To(Equal(0))
		})

		It("propagates locator failures other than not found", func() {
			dest.findErr = fmt.Errorf("asana: %w", model.ErrRemoteUnavailable)
			issue := openIssue(7)
			issue.State = model.IssueStateClosed

			_, err := engine.Sync(ctx, issue)

			Expect(err).To(MatchError(model.ErrRemoteUnavailable))
		})

		It("propagates update failures", func() {
			dest.seedTask("Acme-widgets-7", model.Unassigned, false)
			dest.updateErr = fmt.Errorf("asana: %w", model.ErrRemoteUnavailable)

			_, err := engine.Sync(ctx, openIssue(7))

			Expect(err).To(MatchError(model.ErrRemoteUnavailable))
		})

		It("fails with ErrNotFound when the organization has no workspace", func() {
			issue := openIssue(7)
			issue.Organization = "Initech"

			_, err := engine.Sync(ctx, issue)

			Expect(errors.Is(err, model.ErrNotFound)).To(BeTrue())
			Expect(dest.count("CreateTask")).To(Equal(0))
		})

		It("fails with ErrNotFound when the repository has no project", func() {
			issue := openIssue(7)
			issue.Repository = "sprockets"

			_, err := engine.Sync(ctx, issue)

			Expect(err).To(MatchError(model.ErrNotFound))
		})
	})
})
