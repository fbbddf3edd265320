package main

import (
	crand "crypto/rand"
	"math/big"
)

// questionPair couples the question everyone answers with the divergent
// question the liar receives instead.
type questionPair struct {
	Real string
	Liar string
}

// questionPairs is the shared read-only pool. Rooms track which indices
// they have already used, so the pool itself needs no synchronization.
var questionPairs = []questionPair{
	{
		Real: "What's the age you had your first crush?",
		Liar: "State a number between 5-20",
	},
	{
		Real: "What's the most amount of alcoholic drinks you've had in one night?",
		Liar: "State a number between 2-30",
	},
	{
		Real: "What's your favourite TV show of all time?",
		Liar: "What's the most overrated TV show of all time?",
	},
	{
		Real: "What time period in history would travel back in time to?",
		Liar: "What would be the worst period in history to time travel to?",
	},
	{
		Real: "What's the one thing you can't live without in your house?",
		Liar: "What's the most expensive thing you own?",
	},
	{
		Real: "What animal would you choose to turn into?",
		Liar: "What's your least favourite animal?",
	},
	{
		Real: "How many push ups can you do?",
		Liar: "State a number from 1-40",
	},
	{
		Real: "What's your dream vacation destination that you haven't yet been to?",
		Liar: "Where's the best place you've travelled in the last 5 years?",
	},
	{
		Real: "What's the last movie that made you cry?",
		Liar: "What's the last movie that was so bad you couldn't finish?",
	},
	{
		Real: "What's your hidden talent?",
		Liar: "What skill do you wish you had?",
	},
	{
		Real: "What's your favourite form of exercise?",
		Liar: "What form of exercise do you avoid at all costs?",
	},
	{
		Real: "What's your go to pizza topping?",
		Liar: "What pizza topping should be banned?",
	},
	{
		Real: "What's your favourite season of the year?",
		Liar: "What's your least favourite season of the year?",
	},
	{
		Real: "What social media app do you use the most?",
		Liar: "What social media app do you think is most toxic?",
	},
	{
		Real: "How many unread emails do you currently have?",
		Liar: "State a number between 0-1000",
	},
	{
		Real: "What's your favorite song to sing in the shower?",
		Liar: "What's one song that irritates you?",
	},
	{
		Real: "How many cups of coffee do you drink per day?",
		Liar: "State a number between 0-8",
	},
	{
		Real: "What city would you love to live in one day?",
		Liar: "What's one city you think is overrated to live in?",
	},
	{
		Real: "How many pairs of shoes do you own?",
		Liar: "State a number between 5-50",
	},
	{
		Real: "How many times do you hit the snooze button in the morning?",
		Liar: "State a number between 0-10",
	},
	{
		Real: "What's the most number of days you've gone without showering?",
		Liar: "State a number between 0-7",
	},
	{
		Real: "If you could be a contestant on any reality TV show, what would it be?",
		Liar: "What reality TV show do you hate?",
	},
}

// randIntn returns a uniform random int in [0, n).
func randIntn(n int) int {
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return int(v.Int64())
}

// drawQuestionPair picks a pair uniformly at random among those whose
// index is not yet in used, marking the chosen index. When every pair
// has been used the set is reset first, so a draw always succeeds.
func drawQuestionPair(used map[int]bool) (int, questionPair) {
	if len(used) >= len(questionPairs) {
		for k := range used {
			delete(used, k)
		}
	}

	unused := make([]int, 0, len(questionPairs)-len(used))
	for i := range questionPairs {
		if !used[i] {
			unused = append(unused, i)
		}
	}

	idx := unused[randIntn(len(unused))]
	used[idx] = true

	return idx, questionPairs[idx]
}
