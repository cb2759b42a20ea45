/*
Copyright (c) 2025 The shopvac Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/semaphore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/wseaton/shopvac/internal/age"
	"github.com/wseaton/shopvac/internal/candidate"
	"github.com/wseaton/shopvac/internal/cleanup"
	"github.com/wseaton/shopvac/internal/deletion"
	"github.com/wseaton/shopvac/internal/selector"
)

// DefaultExcludePattern keeps cluster-wide runs out of system namespaces.
const DefaultExcludePattern = `(openshift.*)|(kube.*)`

// clientFactory builds the cluster client from a kubeconfig path, empty
// meaning the default loading rules.
type clientFactory func(kubeconfig string) (client.Client, error)

// options are the resolved settings of one invocation.
type options struct {
	Namespace      string
	LabelSelector  string
	FieldSelector  string
	OlderThan      int
	ActuallyDelete bool
	ExcludePattern string
	Concurrency    int
	PageSize       int64
	Kubeconfig     string
	LogLevel       string
}

func newRootCmd(newClient clientFactory) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "shopvac",
		Short: "Delete old pods matching a label and field selector",
		Long: `shopvac removes pods older than a number of days that match a label
selector and a field selector, in one namespace or across the cluster.

By default nothing is deleted: the pods that would be removed are only
logged. Pass --actually-delete to remove them.

Every flag can also be set through an environment variable named after
the flag with a SHOPVAC_ prefix, for example SHOPVAC_OLDER_THAN=7.`,
		Example: `  # preview what would be removed from ns1
  shopvac -n ns1 -f 'status.phase!=Running,status.phase!=Pending'

  # remove week-old spark pods everywhere except system namespaces
  shopvac -l sparkoperator.k8s.io/launched-by-spark-operator=true -o 7 -a`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := loadOptions(v)

			level, err := zapcore.ParseLevel(opts.LogLevel)
			if err != nil {
				return invalidInput(fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err))
			}
			logger := zap.New(zap.Level(level), zap.WriteTo(cmd.ErrOrStderr()))
			logf.SetLogger(logger)
			ctx := logf.IntoContext(cmd.Context(), logger)

			c, err := newClient(opts.Kubeconfig)
			if err != nil {
				return &exitError{code: ExitCodeListFailed, err: fmt.Errorf("failed to create cluster client: %w", err)}
			}
			return run(ctx, opts, c, cmd.OutOrStdout())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidInput(err)
	})

	flags := cmd.Flags()
	flags.StringP("namespace", "n", "", "namespace to clean; all namespaces when empty")
	flags.StringP("label-selector", "l", "", "label selector pods must match, e.g. app=spark,tier in (batch)")
	flags.StringP("field-selector", "f", "", "field selector pods must match, e.g. status.phase!=Running")
	flags.IntP("older-than", "o", 3, "minimum pod age in days")
	flags.BoolP("actually-delete", "a", false, "delete the pods instead of only listing them")
	flags.StringP("exclude-namespace-pattern", "e", DefaultExcludePattern,
		"regular expression of namespaces to skip when running cluster-wide")
	flags.Int("concurrency", deletion.DefaultConcurrency, "maximum number of concurrent delete calls")
	flags.Int64("page-size", candidate.DefaultPageSize, "number of pods requested per list call")
	flags.String("kubeconfig", "", "path to a kubeconfig file; defaults to $KUBECONFIG, in-cluster config or ~/.kube/config")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	v.SetEnvPrefix("SHOPVAC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	utilruntime.Must(v.BindPFlags(flags))

	return cmd
}

func loadOptions(v *viper.Viper) options {
	return options{
		Namespace:      v.GetString("namespace"),
		LabelSelector:  v.GetString("label-selector"),
		FieldSelector:  v.GetString("field-selector"),
		OlderThan:      v.GetInt("older-than"),
		ActuallyDelete: v.GetBool("actually-delete"),
		ExcludePattern: v.GetString("exclude-namespace-pattern"),
		Concurrency:    v.GetInt("concurrency"),
		PageSize:       v.GetInt64("page-size"),
		Kubeconfig:     v.GetString("kubeconfig"),
		LogLevel:       v.GetString("log-level"),
	}
}

// pass validates opts and turns them into a cleanup pass.
func (o options) pass() (cleanup.Pass, error) {
	if o.OlderThan < 0 || o.OlderThan > 127 {
		return cleanup.Pass{}, fmt.Errorf("--older-than must be between 0 and 127 days, got %d", o.OlderThan)
	}
	if o.Concurrency < 1 {
		return cleanup.Pass{}, fmt.Errorf("--concurrency must be at least 1, got %d", o.Concurrency)
	}

	sel, err := selector.Parse(o.LabelSelector, o.FieldSelector)
	if err != nil {
		return cleanup.Pass{}, err
	}

	var exclude *regexp.Regexp
	if o.Namespace == "" && o.ExcludePattern != "" {
		exclude, err = regexp.Compile(o.ExcludePattern)
		if err != nil {
			return cleanup.Pass{}, fmt.Errorf("invalid --exclude-namespace-pattern: %w", err)
		}
	}

	return cleanup.Pass{
		Key:               "shopvac/" + o.Namespace,
		Scope:             o.Namespace,
		Selector:          sel,
		Policy:            age.FromDays(int8(o.OlderThan)),
		ExcludeNamespaces: exclude,
	}, nil
}

func run(ctx context.Context, opts options, c client.Client, out io.Writer) error {
	p, err := opts.pass()
	if err != nil {
		return invalidInput(err)
	}

	executor := deletion.NewExecutor(c, semaphore.NewWeighted(int64(opts.Concurrency)),
		deletion.WithDryRun(!opts.ActuallyDelete))
	runner := cleanup.NewRunner(candidate.NewResolver(c, opts.PageSize), executor)

	outcome, err := runner.Run(ctx, p)
	if err != nil {
		if errors.Is(err, candidate.ErrListFailed) {
			return &exitError{code: ExitCodeListFailed, err: err}
		}
		return &exitError{code: ExitCodeListFailed, err: fmt.Errorf("cleanup pass did not run: %w", err)}
	}

	printSummary(out, opts, outcome)

	if !outcome.OK() {
		return &exitError{
			code: ExitCodeDeleteFailed,
			err:  fmt.Errorf("%d pod(s) could not be removed", outcome.Failed),
		}
	}
	return nil
}

func printSummary(out io.Writer, opts options, o *deletion.Outcome) {
	scope := opts.Namespace
	if scope == "" {
		scope = "all namespaces"
	}

	if o.DryRun {
		fmt.Fprintf(out, "%d pod(s) older than %dd in %s would be deleted; pass --actually-delete to remove them\n",
			o.Succeeded, opts.OlderThan, scope)
	} else {
		fmt.Fprintf(out, "deleted %d of %d pod(s) older than %dd in %s\n", o.Succeeded, o.Found, opts.OlderThan, scope)
	}
	if len(o.Failures) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Failed pod", "Reason"})
	for _, f := range o.Failures {
		t.AppendRow(table.Row{f.Pod, f.Reason})
	}
	t.Render()
}

func newClusterClient(kubeconfig string) (client.Client, error) {
	var (
		cfg *rest.Config
		err error
	)
	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = config.GetConfig()
	}
	if err != nil {
		return nil, err
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}
	return client.New(cfg, client.Options{Scheme: scheme})
}
