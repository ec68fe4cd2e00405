// Package config provides configuration parsing for Loom applications.
//
// The configuration is stored in loom.json at the project root. loom.yaml
// and loom.yml are accepted as well and hold the same keys. This package
// handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "scheduler": {
//	    "minRemaining": "1ms",
//	    "frameBudget": "8ms",
//	    "frameInterval": "16ms"
//	  },
//	  "server": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "readTimeout": "60s",
//	    "writeTimeout": "10s",
//	    "maxSessions": 1000
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "loom",
//	    "path": "/metrics"
//	  },
//	  "tracing": {
//	    "tracerName": "loom"
//	  },
//	  "export": {
//	    "dir": "dist",
//	    "s3Bucket": "my-bucket",
//	    "s3Prefix": "snapshots/",
//	    "s3Region": "us-east-1"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Address:", cfg.Address())
package config
