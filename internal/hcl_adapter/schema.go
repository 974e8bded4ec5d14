// This file contains the HCL schema structs the loader decodes files into.

package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Jobs     []*jobBlock     `hcl:"job,block"`
	Clusters []*clusterBlock `hcl:"cluster,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

// jobBlock is a `job "name" { ... }` sweep definition.
type jobBlock struct {
	Name           string            `hcl:"name,label"`
	SimulationType string            `hcl:"simulation_type,optional"`
	Parameters     []*parameterBlock `hcl:"parameter,block"`
	Submit         *submitBlock      `hcl:"submit,block"`
}

// parameterBlock is a `parameter "name" { value = ... }` block. The value is
// kept as an expression so it can be evaluated with the function table.
type parameterBlock struct {
	Name       string         `hcl:"name,label"`
	Value      hcl.Expression `hcl:"value"`
	Expandable hcl.Expression `hcl:"expandable,optional"`
}

type submitBlock struct {
	BatchName          string   `hcl:"batch_name,optional"`
	Checkpoints        bool     `hcl:"checkpoints,optional"`
	MemoryGB           float64  `hcl:"memory_gb,optional"`
	DiskGB             float64  `hcl:"disk_gb,optional"`
	MaxMaterialize     int      `hcl:"max_materialize,optional"`
	Executable         string   `hcl:"executable,optional"`
	TransferInputFiles []string `hcl:"transfer_input_files,optional"`
	Requirements       string   `hcl:"requirements,optional"`
}

// clusterBlock is a `cluster "name" { ... }` submit host definition.
type clusterBlock struct {
	Name              string   `hcl:"name,label"`
	Host              string   `hcl:"host"`
	Port              int      `hcl:"port,optional"`
	Username          string   `hcl:"username"`
	KeyPath           string   `hcl:"key_path,optional"`
	KnownHosts        string   `hcl:"known_hosts,optional"`
	MirrorRoot        string   `hcl:"mirror_root,optional"`
	JobsDir           string   `hcl:"jobs_dir,optional"`
	BlacklistDirs     []string `hcl:"blacklist_dirs,optional"`
	WhitelistExts     []string `hcl:"whitelist_exts,optional"`
	CommandTimeout    string   `hcl:"command_timeout,optional"`
	IntegrityAttempts int      `hcl:"integrity_attempts,optional"`
}
