package config

import (
	"fmt"
	"os"
)

func Template(kind Kind) (string, error) {
	switch kind {
	case KindOperator:
		return operatorTemplate, nil
	case KindCell:
		return cellTemplate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func WriteTemplate(path string, kind Kind, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const operatorTemplate = `node_name = "teaching_tools_ui"
target = "127.0.0.1:7420"
mode = "tui"
spin_period = "100ms"
frame_id = "base_link"
joint_names = [
  "shoulder_pan_joint",
  "shoulder_lift_joint",
  "elbow_joint",
  "wrist_1_joint",
  "wrist_2_joint",
  "wrist_3_joint",
]
match_strategy = "action"
reset_timeout = "0s"
match_result_timeout = "0s"

[endpoints]
reset_ghost = "reset_ghost"
reset_marker = "reset_teaching_marker"
match_ghost = "match_ghost"
control = "ur_control"
ghost_topic = "ghost/joint_states"

[admin]
listen = "127.0.0.1:7430"
token = ""
jwt_secret = ""
jwt_issuer = "teachctl"
cors_origins = ["http://localhost:3000"]

[log]
level = "info"
timestamp = true
file = "local/logs/teachctl.log"
max_size_mb = 10
max_backups = 3
max_age_days = 7

[tracing]
endpoint = ""
sample_ratio = 1.0
`

const cellTemplate = `listen = "127.0.0.1:7420"
frame_id = "base_link"
joint_names = [
  "shoulder_pan_joint",
  "shoulder_lift_joint",
  "elbow_joint",
  "wrist_1_joint",
  "wrist_2_joint",
  "wrist_3_joint",
]
home_pose = [0.0, -1.5708, 1.5708, -1.5708, -1.5708, 0.0]
drift = 0.05
publish_interval = "100ms"
heartbeat_interval = "5s"
marker_jammed = false
joint_speed = 1.0
feedback_interval = "50ms"

[endpoints]
reset_ghost = "reset_ghost"
reset_marker = "reset_teaching_marker"
match_ghost = "match_ghost"
control = "ur_control"
ghost_topic = "ghost/joint_states"

[log]
level = "info"
timestamp = true

[tracing]
endpoint = ""
sample_ratio = 1.0
`
