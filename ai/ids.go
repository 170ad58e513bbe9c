package ai

import "github.com/milk9111/enemyai/ai/fsm"

// Base states every helper registers.
const (
	StateSpawn fsm.StateID = "spawn"
	StateIdle  fsm.StateID = "idle"
	StateDie   fsm.StateID = "die"
)

const (
	StateFindTarget fsm.StateID = "find_target"
	StateAttack     fsm.StateID = "attack"
	StateFireLaser  fsm.StateID = "fire_laser"
	StateEvade      fsm.StateID = "evade"
	StateDetonate   fsm.StateID = "detonate"
)

// Base events every helper registers.
const (
	EventKilled  fsm.EventID = "killed"
	EventDefault fsm.EventID = "default"
)

const (
	EventEnemyTargeted fsm.EventID = "enemy_targeted"
	EventTargetKilled  fsm.EventID = "target_killed"
	EventTookDamage    fsm.EventID = "took_damage"
	EventNoTargetFound fsm.EventID = "no_target_found"
	EventFire          fsm.EventID = "fire"
	EventDetonate      fsm.EventID = "detonate"
	EventEvadeComplete fsm.EventID = "evade_complete"
)

// Helper kinds, matching the kind field of behavior prefabs.
const (
	KindTower      = "tower"
	KindHelix      = "helix"
	KindMine       = "mine"
	KindMothership = "mothership"
	KindScripted   = "scripted"
)
