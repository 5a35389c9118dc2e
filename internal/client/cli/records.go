package cli

import (
	"fmt"

	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/spf13/cobra"
)

func printSaved[P any](cmd *cobra.Command, verb string, rec *models.Record[P]) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, rec.ID)
}

func newJournalCommand(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"j"},
		Short:   "Write and edit journal entries",
	}

	var body string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := s.app.journal.Create(cmd.Context(), models.JournalEntry{Title: args[0], Body: body})
			if err != nil {
				return err
			}
			printSaved(cmd, "added", rec)
			return nil
		},
	}
	add.Flags().StringVarP(&body, "body", "b", "", "entry text")

	var title, newBody string
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or body of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cur, err := s.app.journal.Get(ctx, args[0])
			if err != nil {
				return err
			}
			p := cur.Payload
			if cmd.Flags().Changed("title") {
				p.Title = title
			}
			if cmd.Flags().Changed("body") {
				p.Body = newBody
			}
			rec, err := s.app.journal.Update(ctx, args[0], p)
			if err != nil {
				return err
			}
			printSaved(cmd, "updated", rec)
			return nil
		},
	}
	edit.Flags().StringVarP(&title, "title", "t", "", "new title")
	edit.Flags().StringVarP(&newBody, "body", "b", "", "new text")

	cmd.AddCommand(add, edit)
	return cmd
}

func newProjectCommand(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Manage projects and their task lists",
	}

	var (
		description string
		tasks       []string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := models.Project{Name: args[0], Description: description}
			for _, t := range tasks {
				p.Tasks = append(p.Tasks, models.Task{Text: t})
			}
			rec, err := s.app.projects.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			printSaved(cmd, "added", rec)
			return nil
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "project description")
	add.Flags().StringArrayVar(&tasks, "task", nil, "task text, repeatable")

	var (
		name, newDescription string
		newTasks             []string
		done, undone         []int
	)
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename a project, replace its tasks or tick tasks off",
		Long: `Rename a project, replace its tasks or tick tasks off.

Tasks are numbered from 1 in the order "show" prints them. --task replaces the
whole list; --done and --undone apply to the resulting list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cur, err := s.app.projects.Get(ctx, args[0])
			if err != nil {
				return err
			}
			p := cur.Payload
			f := cmd.Flags()
			if f.Changed("name") {
				p.Name = name
			}
			if f.Changed("description") {
				p.Description = newDescription
			}
			if f.Changed("task") {
				p.Tasks = nil
				for _, t := range newTasks {
					p.Tasks = append(p.Tasks, models.Task{Text: t})
				}
			} else {
				p.Tasks = append(models.Tasks(nil), p.Tasks...)
			}
			if err := setTasksDone(p.Tasks, done, true); err != nil {
				return err
			}
			if err := setTasksDone(p.Tasks, undone, false); err != nil {
				return err
			}

			rec, err := s.app.projects.Update(ctx, args[0], p)
			if err != nil {
				return err
			}
			printSaved(cmd, "updated", rec)
			return nil
		},
	}
	edit.Flags().StringVarP(&name, "name", "n", "", "new name")
	edit.Flags().StringVarP(&newDescription, "description", "d", "", "new description")
	edit.Flags().StringArrayVar(&newTasks, "task", nil, "replace tasks, repeatable")
	edit.Flags().IntSliceVar(&done, "done", nil, "mark task numbers done")
	edit.Flags().IntSliceVar(&undone, "undone", nil, "mark task numbers not done")

	cmd.AddCommand(add, edit)
	return cmd
}

func setTasksDone(tasks models.Tasks, numbers []int, done bool) error {
	for _, n := range numbers {
		if n < 1 || n > len(tasks) {
			return fmt.Errorf("no task %d, project has %d", n, len(tasks))
		}
		tasks[n-1].Done = done
	}
	return nil
}

func newTodoCommand(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todo",
		Aliases: []string{"t"},
		Short:   "Manage todos",
	}

	var project string
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := s.app.todos.Create(cmd.Context(), models.Todo{Text: args[0], ProjectID: project})
			if err != nil {
				return err
			}
			printSaved(cmd, "added", rec)
			return nil
		},
	}
	add.Flags().StringVarP(&project, "project", "p", "", "attach to project id")

	var (
		text, newProject string
		done             bool
	)
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cur, err := s.app.todos.Get(ctx, args[0])
			if err != nil {
				return err
			}
			p := cur.Payload
			f := cmd.Flags()
			if f.Changed("text") {
				p.Text = text
			}
			if f.Changed("done") {
				p.Done = done
			}
			if f.Changed("project") {
				p.ProjectID = newProject
			}
			rec, err := s.app.todos.Update(ctx, args[0], p)
			if err != nil {
				return err
			}
			printSaved(cmd, "updated", rec)
			return nil
		},
	}
	edit.Flags().StringVar(&text, "text", "", "new text")
	edit.Flags().BoolVar(&done, "done", false, "mark done (--done=false to reopen)")
	edit.Flags().StringVarP(&newProject, "project", "p", "", "project id, empty to detach")

	markDone := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a todo done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cur, err := s.app.todos.Get(ctx, args[0])
			if err != nil {
				return err
			}
			p := cur.Payload
			p.Done = true
			rec, err := s.app.todos.Update(ctx, args[0], p)
			if err != nil {
				return err
			}
			printSaved(cmd, "updated", rec)
			return nil
		},
	}

	cmd.AddCommand(add, edit, markDone)
	return cmd
}
