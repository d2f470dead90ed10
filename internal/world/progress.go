package world

// Per-level stat gains.
const (
	LevelUpHP  = 10
	LevelUpAtk = 2
	LevelUpDef = 1
)

// ApplyLevelUps raises level and stats for every threshold the player's
// cumulative XP has crossed. XP is never spent; xpNeeded(level) is the total
// XP at which that level is left. Returns true when at least one level was
// gained. Stats only ever go up.
func ApplyLevelUps(p *Player, xpNeeded func(level uint32) uint64) bool {
	leveled := false
	for p.XP >= xpNeeded(p.Level) {
		p.Level++
		p.MaxHP += LevelUpHP
		p.Atk += LevelUpAtk
		p.Def += LevelUpDef
		leveled = true
	}
	return leveled
}
