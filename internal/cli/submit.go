package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fiscalia/campo/internal/codec"
	"github.com/fiscalia/campo/internal/record"
	"github.com/fiscalia/campo/internal/store"
	"github.com/fiscalia/campo/internal/syncer"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	File        string
	Status      string
	Observation string
	UserID      int64
	Photos      []string
}

// draftFile is the YAML shape of a submission draft written by the inspector.
type draftFile struct {
	Status      string                  `yaml:"status"`
	Observation string                  `yaml:"observacao"`
	UserID      int64                   `yaml:"userId"`
	Checklist   []record.ChecklistEntry `yaml:"checklist"`
	Photos      []string                `yaml:"photos"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <target-id>",
		Short: "Submit an inspection outcome for a target",
		Long: `Submit an inspection outcome for a target.

When the API is reachable the submission is delivered immediately. When it is
not, or when delivery fails, the submission is saved in the local queue and
synced on the next connectivity transition or explicit sync.

The submission can come from flags or from a YAML draft file:

  status: EM ANDAMENTO
  observacao: pilares do térreo concluídos
  userId: 12
  checklist:
    - servico: Estrutura de concreto
      aplicaSe: true
      art: "1234567"
  photos:
    - ./fotos/pilar-01.jpg

Flags override draft fields.

Example:
  campo submit 42 --status "EM ANDAMENTO" --user 12 --photo obra.jpg
  campo submit 42 --file rascunho.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML draft file with the submission")
	cmd.Flags().StringVar(&opts.Status, "status", "", "inspection status")
	cmd.Flags().StringVar(&opts.Observation, "observation", "", "free-text observation")
	cmd.Flags().Int64Var(&opts.UserID, "user", 0, "acting user id")
	cmd.Flags().StringArrayVar(&opts.Photos, "photo", nil, "photo file (repeatable)")

	return cmd
}

func runSubmit(opts *SubmitOptions, rawTargetID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	targetID, err := strconv.ParseInt(rawTargetID, 10, 64)
	if err != nil || targetID <= 0 {
		formatter.Error(CodeCommand, fmt.Sprintf("invalid target id %q", rawTargetID), nil)
		return NewExitError(ExitCommandError, "invalid target id")
	}

	req, closers, err := buildRequest(opts, targetID)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		formatter.Error(CodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build submission", err)
	}

	env, err := openEnv(opts.RootOptions, false)
	if err != nil {
		formatter.Error(CodeStore, err.Error(), nil)
		return err
	}
	defer env.close()

	result, err := env.controller.SubmitOrQueue(cmd.Context(), req)
	if err != nil {
		return reportSubmitError(formatter, result, err)
	}

	if result.Delivered {
		formatter.Success(fmt.Sprintf("Submission for target %d delivered.", targetID))
		return nil
	}

	count, countErr := env.queue.Count(cmd.Context())
	if countErr != nil {
		count = -1
	}
	formatter.Success(fmt.Sprintf(
		"Saved offline. Target %d will sync when connectivity returns (%d pending).",
		targetID, count))
	return nil
}

// reportSubmitError maps core errors to user-facing messages. A submission
// that was neither delivered nor persisted is a data-loss situation and is
// said so explicitly; a delivered submission whose stale offline copy could
// not be removed is not.
func reportSubmitError(formatter *OutputFormatter, result syncer.SubmitResult, err error) error {
	switch {
	case record.IsValidationError(err):
		formatter.Error(CodeValidation, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid submission", err)
	case codec.IsCodecError(err):
		formatter.Error(CodeCodec, err.Error(), nil)
		return WrapExitError(ExitCommandError, "could not read photo", err)
	case store.IsUnavailable(err):
		if result.Delivered {
			formatter.Error(CodeStore, fmt.Sprintf(
				"Submission for target %d was delivered, but a stale offline copy could not be removed "+
					"and may be re-sent by a later sync: %v", result.Record.TargetID, err), nil)
			return WrapExitError(ExitFailure, "stale offline copy not removed", err)
		}
		formatter.Error(CodeStore,
			"WARNING: the submission could NOT be delivered or saved locally. "+
				"The data is lost unless you submit again: "+err.Error(), nil)
		return WrapExitError(ExitCommandError, "submission not persisted", err)
	default:
		formatter.Error(CodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "submission failed", err)
	}
}

// buildRequest assembles the submission request from the draft file and
// flags. It returns the opened photo files so the caller can close them once
// the photos have been encoded.
func buildRequest(opts *SubmitOptions, targetID int64) (record.Request, []*os.File, error) {
	var draft draftFile
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return record.Request{}, nil, fmt.Errorf("read draft: %w", err)
		}
		if err := yaml.Unmarshal(data, &draft); err != nil {
			return record.Request{}, nil, fmt.Errorf("parse draft: %w", err)
		}
	}

	rawStatus := draft.Status
	if opts.Status != "" {
		rawStatus = opts.Status
	}
	status, err := record.ParseStatus(rawStatus)
	if err != nil {
		return record.Request{}, nil, err
	}

	observation := draft.Observation
	if opts.Observation != "" {
		observation = opts.Observation
	}

	userID := draft.UserID
	if opts.UserID != 0 {
		userID = opts.UserID
	}

	photoPaths := draft.Photos
	if len(opts.Photos) > 0 {
		photoPaths = opts.Photos
	}

	var files []*os.File
	sources := make([]record.PhotoSource, 0, len(photoPaths))
	for _, path := range photoPaths {
		file, err := os.Open(path)
		if err != nil {
			return record.Request{}, files, fmt.Errorf("open photo: %w", err)
		}
		files = append(files, file)
		sources = append(sources, record.PhotoSource{
			Name:     filepath.Base(path),
			MIMEType: mime.TypeByExtension(filepath.Ext(path)),
			Reader:   file,
		})
	}

	return record.Request{
		TargetID:    targetID,
		Status:      status,
		Observation: observation,
		UserID:      userID,
		Checklist:   draft.Checklist,
		Photos:      sources,
	}, files, nil
}
