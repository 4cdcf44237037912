/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/metrics/filters"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/controller/rabbitmqservice"
	"github.com/netcracker/rabbitmq-operator/internal/convergence"
	"github.com/netcracker/rabbitmq-operator/internal/infra"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/shovel"
)

const leaderElectionID = "rabbitmq-operator-leader.netcracker.com"

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(rabbitmqv2.AddToScheme(scheme))
}

// flags holds the manager wiring options taken from the command line.
type flags struct {
	metricsAddr          string
	probeAddr            string
	metricsCertPath      string
	metricsCertName      string
	metricsCertKey       string
	enableLeaderElection bool
	secureMetrics        bool
	enableHTTP2          bool
	zap                  zap.Options
}

// parseFlags parses args. level is the LOGLEVEL default; --zap-log-level
// still overrides it.
func parseFlags(args []string, level zapcore.Level) (*flags, error) {
	f := &flags{zap: zap.Options{Level: level}}
	fs := flag.NewFlagSet("controller", flag.ContinueOnError)

	fs.StringVar(&f.metricsAddr, "metrics-bind-address", ":8443", "The address the metrics endpoint binds to.")
	fs.StringVar(&f.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	fs.BoolVar(&f.enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	fs.BoolVar(&f.secureMetrics, "metrics-secure", true,
		"If set, the metrics endpoint is served securely via HTTPS. Use --metrics-secure=false to use HTTP instead.")
	fs.StringVar(&f.metricsCertPath, "metrics-cert-path", "",
		"The directory that contains the metrics server certificate.")
	fs.StringVar(&f.metricsCertName, "metrics-cert-name", "tls.crt", "The name of the metrics server certificate file.")
	fs.StringVar(&f.metricsCertKey, "metrics-cert-key", "tls.key", "The name of the metrics server key file.")
	fs.BoolVar(&f.enableHTTP2, "enable-http2", false,
		"If set, HTTP/2 will be enabled for the metrics server")
	f.zap.BindFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func metricsOptions(f *flags) metricsserver.Options {
	var tlsOpts []func(*tls.Config)

	// if the enable-http2 flag is false (the default), http/2 should be disabled
	// due to its vulnerabilities. More specifically, disabling http/2 will
	// prevent from being vulnerable to the HTTP/2 Stream Cancellation and
	// Rapid Reset CVEs. For more information see:
	// - https://github.com/advisories/GHSA-qppj-fm5r-hxr3
	// - https://github.com/advisories/GHSA-4374-p667-p6c8
	if !f.enableHTTP2 {
		tlsOpts = append(tlsOpts, func(c *tls.Config) {
			setupLog.Info("disabling http/2")
			c.NextProtos = []string{"http/1.1"}
		})
	}

	opts := metricsserver.Options{
		BindAddress:   f.metricsAddr,
		SecureServing: f.secureMetrics,
		TLSOpts:       tlsOpts,
	}
	if f.secureMetrics {
		opts.FilterProvider = filters.WithAuthenticationAndAuthorization
	}
	if len(f.metricsCertPath) > 0 {
		setupLog.Info("Initializing metrics certificate watcher using provided certificates",
			"metrics-cert-path", f.metricsCertPath, "metrics-cert-name", f.metricsCertName, "metrics-cert-key", f.metricsCertKey)
		opts.CertDir = f.metricsCertPath
		opts.CertName = f.metricsCertName
		opts.KeyName = f.metricsCertKey
	}
	return opts
}

// managerOptions scopes the informer cache to the managed namespace. Workload
// objects are only ever read live through the state client, so they are kept
// out of the cache.
func managerOptions(cfg *config.OperatorConfig, f *flags) ctrl.Options {
	syncPeriod := cfg.WatchTimeout
	return ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsOptions(f),
		HealthProbeBindAddress: f.probeAddr,
		LeaderElection:         f.enableLeaderElection,
		LeaderElectionID:       leaderElectionID,
		Cache: cache.Options{
			DefaultNamespaces: map[string]cache.Config{cfg.Namespace: {}},
			SyncPeriod:        &syncPeriod,
		},
		Client: client.Options{
			Cache: &client.CacheOptions{
				DisableFor: []client.Object{
					&corev1.Pod{},
					&corev1.PersistentVolumeClaim{},
					&appsv1.StatefulSet{},
					&appsv1.Deployment{},
				},
			},
		},
	}
}

// Run starts the RabbitMQService controller manager.
func Run(args []string) error {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load operator configuration: %w", err)
	}
	f, err := parseFlags(args, cfg.LogLevel)
	if err != nil {
		return err
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&f.zap)))
	setupLog.Info("Operator configuration loaded",
		"namespace", cfg.Namespace,
		"deleteResources", cfg.DeleteResources,
		"handleForbiddenUpdate", cfg.HandleForbiddenUpdate,
		"shovelMonitoring", cfg.ShovelMonitoring,
		"backupDaemonEnabled", cfg.BackupDaemonEnabled,
		"watchTimeout", cfg.WatchTimeout,
		"apiGroup", cfg.APIGroup)

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), managerOptions(cfg, f))
	if err != nil {
		return fmt.Errorf("unable to start manager: %w", err)
	}

	executor, err := kube.NewSPDYExecutor(mgr.GetConfig())
	if err != nil {
		return fmt.Errorf("unable to create pod executor: %w", err)
	}
	state := kube.NewStateClient(mgr.GetClient(), mgr.GetAPIReader(), kube.Options{
		Namespace:             cfg.Namespace,
		HandleForbiddenUpdate: cfg.HandleForbiddenUpdate,
		ForbiddenUpdatePause:  cfg.Timings.ForbiddenUpdatePause,
		Executor:              executor,
	})
	factory := &rabbitmqservice.ClientFactory{State: state, Config: cfg}

	if err := (&rabbitmqservice.RabbitMQServiceReconciler{
		Client:    mgr.GetClient(),
		APIReader: mgr.GetAPIReader(),
		Scheme:    mgr.GetScheme(),
		Recorder:  mgr.GetEventRecorderFor(constants.ControllerNameRabbitMQService),
		Config:    cfg,
		State:     state,
		Infra:     infra.NewManager(state),
		Clients:   factory,
	}).SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller %s: %w", constants.ControllerNameRabbitMQService, err)
	}

	if err := (&rabbitmqservice.CredentialsReconciler{
		Client:    mgr.GetClient(),
		APIReader: mgr.GetAPIReader(),
		Recorder:  mgr.GetEventRecorderFor(constants.ControllerNameCredentials),
		Config:    cfg,
		State:     state,
		Clients:   factory,
	}).SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller %s: %w", constants.ControllerNameCredentials, err)
	}

	if err := (&rabbitmqservice.ConfigReloadReconciler{
		Client:    mgr.GetClient(),
		APIReader: mgr.GetAPIReader(),
		Recorder:  mgr.GetEventRecorderFor(constants.ControllerNameConfigReload),
		Config:    cfg,
		State:     state,
		Clients:   factory,
	}).SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller %s: %w", constants.ControllerNameConfigReload, err)
	}

	if cfg.ShovelMonitoring {
		monitor := shovel.NewMonitor(mgr.GetAPIReader(), cfg.Namespace, state,
			convergence.New(state, nil, cfg.Timings), factory.ShovelChecker, cfg.Timings)
		if err := mgr.Add(monitor); err != nil {
			return fmt.Errorf("unable to add shovel monitor: %w", err)
		}
		setupLog.Info("Shovel monitoring enabled", "schedule", cfg.Timings.ShovelSchedule)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting controller manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		return fmt.Errorf("problem running manager: %w", err)
	}
	return nil
}
